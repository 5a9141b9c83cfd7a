package dto

type UsageCheckRequest struct {
	ActionType string `json:"action_type" validate:"required,oneof=call text email"`
}

type CheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type PlanChangeRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}
