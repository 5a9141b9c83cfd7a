package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/validator"
)

type SubscriptionHandler struct {
	subs     SubscriptionAPI
	validate *validator.Validator
}

func NewSubscriptionHandler(subs SubscriptionAPI, v *validator.Validator) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, validate: v}
}

func (h *SubscriptionHandler) Get(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	view, err := h.subs.Get(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: view})
}

func (h *SubscriptionHandler) Checkout(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Check(req); err != nil {
		return respondError(c, err)
	}

	url, err := h.subs.Checkout(c.UserContext(), userID, req.PriceID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.URLResponse{Success: true, URL: url})
}

func (h *SubscriptionHandler) Portal(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	url, err := h.subs.Portal(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.URLResponse{Success: true, URL: url})
}

func (h *SubscriptionHandler) RequestChange(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req dto.PlanChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Check(req); err != nil {
		return respondError(c, err)
	}

	res, err := h.subs.RequestPlanChange(c.UserContext(), userID, req.PlanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.PlanChangeResponse{
		Success:     true,
		ChangeType:  string(res.ChangeType),
		PlanID:      res.PlanID,
		Immediate:   res.Immediate,
		EffectiveAt: res.EffectiveAt,
	})
}

func (h *SubscriptionHandler) CancelChange(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	if err := h.subs.CancelPendingPlanChange(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}
