package dto

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	UsageLimitReached bool   `json:"usage_limit_reached,omitempty"`
	Details           any    `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type UsageCheckResponse struct {
	Success   bool   `json:"success"`
	Allowed   bool   `json:"allowed"`
	Action    string `json:"action_type"`
	Plan      string `json:"plan"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
}

type CallResponse struct {
	Success bool      `json:"success"`
	CallID  uuid.UUID `json:"call_id"`
	CallSID string    `json:"call_sid,omitempty"`
	Status  string    `json:"status"`
}

type SMSResponse struct {
	Success        bool      `json:"success"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Status         string    `json:"status"`
	MessageCount   int       `json:"message_count"`
}

type EmailResponse struct {
	Success   bool      `json:"success"`
	EmailID   uuid.UUID `json:"email_id"`
	MessageID string    `json:"message_id,omitempty"`
	Status    string    `json:"status"`
}

type URLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type PlanChangeResponse struct {
	Success     bool      `json:"success"`
	ChangeType  string    `json:"change_type"`
	PlanID      string    `json:"plan_id"`
	Immediate   bool      `json:"immediate"`
	EffectiveAt time.Time `json:"effective_date"`
}
