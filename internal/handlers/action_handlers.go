package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/services"
)

type CallHandler struct {
	calls CallAPI
}

func NewCallHandler(calls CallAPI) *CallHandler {
	return &CallHandler{calls: calls}
}

func (h *CallHandler) Initiate(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req services.CallInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	call, err := h.calls.Initiate(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}

	resp := dto.CallResponse{Success: true, CallID: call.ID, Status: call.Status}
	if call.CallSID != nil {
		resp.CallSID = *call.CallSID
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

type SMSHandler struct {
	sms SMSAPI
}

func NewSMSHandler(sms SMSAPI) *SMSHandler {
	return &SMSHandler{sms: sms}
}

func (h *SMSHandler) Start(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req services.SMSInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, err := h.sms.Start(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SMSResponse{
		Success:        true,
		ConversationID: conv.ID,
		Status:         conv.Status,
		MessageCount:   conv.MaxExchanges,
	})
}

type EmailHandler struct {
	emails EmailAPI
}

func NewEmailHandler(emails EmailAPI) *EmailHandler {
	return &EmailHandler{emails: emails}
}

func (h *EmailHandler) Send(c *fiber.Ctx) error {
	userID, ok, err := currentUser(c)
	if !ok {
		return err
	}
	var req services.EmailInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	email, err := h.emails.Send(c.UserContext(), userID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EmailResponse{
		Success:   true,
		EmailID:   email.ID,
		MessageID: email.ProviderMessageID,
		Status:    email.Status,
	})
}
