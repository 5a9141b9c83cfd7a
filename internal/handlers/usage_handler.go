package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/validator"
)

type UsageHandler struct {
	usage    UsageAPI
	validate *validator.Validator
}

func NewUsageHandler(usage UsageAPI, v *validator.Validator) *UsageHandler {
	return &UsageHandler{usage: usage, validate: v}
}

// Summary returns the current period's usage and limits for every action.
func (h *UsageHandler) Summary(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	summary, err := h.usage.Summary(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{Success: true, Data: summary})
}

// Check evaluates one action type without consuming it.
func (h *UsageHandler) Check(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req dto.UsageCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Check(req); err != nil {
		return respondError(c, err)
	}

	d, err := h.usage.Evaluate(c.UserContext(), userID, plans.Action(req.ActionType))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.UsageCheckResponse{
		Success:   true,
		Allowed:   d.Allowed,
		Action:    string(d.Action),
		Plan:      string(d.Tier),
		Used:      d.Used,
		Limit:     d.Limit,
		Remaining: d.Remaining(),
	})
}
