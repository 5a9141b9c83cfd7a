package handlers

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/services"
	"github.com/talkah/talkah-backend/internal/telephony"
)

// TwilioHandler serves the callbacks Twilio makes for calls and messages.
// Every response is 200 TwiML so Twilio never retries.
type TwilioHandler struct {
	calls     CallAPI
	sms       SMSAPI
	validator SignatureValidator
	baseURL   string
}

// NewTwilioHandler skips signature checks when validator is nil. baseURL
// must be the public URL Twilio signs requests against.
func NewTwilioHandler(calls CallAPI, sms SMSAPI, validator SignatureValidator, baseURL string) *TwilioHandler {
	return &TwilioHandler{calls: calls, sms: sms, validator: validator, baseURL: baseURL}
}

func (h *TwilioHandler) verify(c *fiber.Ctx) bool {
	if h.validator == nil {
		return true
	}
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		params[string(k)] = string(v)
	})
	return h.validator.ValidSignature(h.baseURL+c.OriginalURL(), params, c.Get("X-Twilio-Signature"))
}

func (h *TwilioHandler) reject(c *fiber.Ctx) error {
	slog.Warn("twilio webhook signature rejected", "path", c.Path(), "request_id", requestID(c))
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Success: false, Error: "Invalid signature"})
}

func xml(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, "text/xml; charset=utf-8")
	return c.SendString(body)
}

// InboundSMS advances the SMS conversation of the sender.
func (h *TwilioHandler) InboundSMS(c *fiber.Ctx) error {
	if !h.verify(c) {
		return h.reject(c)
	}
	var form dto.TwilioInboundSMS
	if err := c.BodyParser(&form); err != nil || form.From == "" {
		return xml(c, telephony.EmptyMessagingTwiML())
	}

	err := h.sms.HandleInbound(c.UserContext(), services.InboundSMS{
		From:       form.From,
		Body:       form.Body,
		MessageSID: form.MessageSid,
	})
	if err != nil {
		slog.Error("inbound sms failed", "request_id", requestID(c), "message_sid", form.MessageSid, "error", err.Error())
	}
	return xml(c, telephony.EmptyMessagingTwiML())
}

// CallStatus records a call lifecycle update.
func (h *TwilioHandler) CallStatus(c *fiber.Ctx) error {
	if !h.verify(c) {
		return h.reject(c)
	}
	var form dto.TwilioCallStatus
	if err := c.BodyParser(&form); err != nil {
		return c.SendStatus(fiber.StatusOK)
	}
	duration, _ := strconv.Atoi(form.CallDuration)

	err := h.calls.HandleStatusCallback(c.UserContext(), services.CallStatusUpdate{
		CallSID:     form.CallSid,
		Status:      form.CallStatus,
		DurationSec: duration,
	})
	if err != nil {
		slog.Error("call status callback failed", "request_id", requestID(c), "call_sid", form.CallSid, "error", err.Error())
	}
	return c.SendStatus(fiber.StatusOK)
}

// Voice returns the TwiML script for an answered outbound call.
func (h *TwilioHandler) Voice(c *fiber.Ctx) error {
	if !h.verify(c) {
		return h.reject(c)
	}
	callID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		callID = uuid.Nil
	}

	twiml, err := h.calls.VoiceTwiML(c.UserContext(), callID)
	if err != nil {
		slog.Error("voice twiml failed", "request_id", requestID(c), "call_id", c.Params("id"), "error", err.Error())
		twiml, _ = telephony.SayTwiML("Sorry, something went wrong. Goodbye.")
	}
	return xml(c, twiml)
}
