package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/repository"
	"github.com/talkah/talkah-backend/internal/telephony"
	"github.com/talkah/talkah-backend/internal/validator"
)

type CallInput struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Topic       string `json:"topic" validate:"required,max=500"`
}

type CallService struct {
	usage     *UsageService
	calls     CallStore
	telephony Telephony
	ai        Completer
	validate  *validator.Validator
	baseURL   string
}

// NewCallService needs baseURL to be the public URL Twilio uses to reach
// the voice and status webhooks.
func NewCallService(usage *UsageService, calls CallStore, tel Telephony, completer Completer, v *validator.Validator, baseURL string) *CallService {
	return &CallService{
		usage:     usage,
		calls:     calls,
		telephony: tel,
		ai:        completer,
		validate:  v,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Initiate places an AI call for userID. The usage counter is incremented
// only after Twilio accepts the call.
func (s *CallService) Initiate(ctx context.Context, userID uuid.UUID, in CallInput) (*models.Call, error) {
	if err := s.validate.Check(in); err != nil {
		return nil, err
	}
	if err := s.usage.Require(ctx, userID, plans.ActionCall); err != nil {
		return nil, err
	}

	call := &models.Call{
		ID:          uuid.New(),
		UserID:      userID,
		PhoneNumber: in.PhoneNumber,
		Topic:       in.Topic,
		Script:      s.script(ctx, in.Topic),
		Status:      models.StatusInitiated,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperr.Internal("failed to create call", err)
	}

	res, err := s.telephony.PlaceCall(ctx, telephony.CallRequest{
		To:                in.PhoneNumber,
		TwimlURL:          s.baseURL + "/api/webhooks/twilio/voice/" + call.ID.String(),
		StatusCallbackURL: s.baseURL + "/api/webhooks/twilio/call-status",
	})
	if err != nil {
		call.Status = models.StatusFailed
		call.ErrorMessage = err.Error()
		if saveErr := s.calls.Save(ctx, call); saveErr != nil {
			slog.Error("failed to mark call failed", "call_id", call.ID.String(), "error", saveErr.Error())
		}
		metrics.RecordAction(string(plans.ActionCall), "failed")
		return nil, apperr.Upstream("failed to place call", err)
	}

	call.CallSID = &res.SID
	call.ProviderStatus = res.Status
	if err := s.calls.Save(ctx, call); err != nil {
		// The call is already ringing; count it even though the row is stale.
		slog.Error("failed to save call sid", "call_id", call.ID.String(), "call_sid", res.SID, "error", err.Error())
	}

	s.usage.record(ctx, userID, plans.ActionCall)
	metrics.RecordAction(string(plans.ActionCall), "sent")
	slog.Info("call placed", "user_id", userID.String(), "call_id", call.ID.String(), "call_sid", res.SID)
	return call, nil
}

func (s *CallService) script(ctx context.Context, topic string) string {
	script, err := s.ai.Complete(ctx, callScriptMessages(topic))
	if err != nil {
		slog.Warn("AI call script failed, using template", "error", err)
		return callScriptTemplate(topic)
	}
	return script
}

// VoiceTwiML renders the TwiML Twilio fetches when the callee answers.
func (s *CallService) VoiceTwiML(ctx context.Context, callID uuid.UUID) (string, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return telephony.SayTwiML("Sorry, this call could not be found. Goodbye.")
		}
		return "", apperr.Internal("failed to load call", err)
	}
	script := call.Script
	if script == "" {
		script = callScriptTemplate(call.Topic)
	}
	return telephony.SayTwiML(script)
}

// CallStatusUpdate is the subset of a Twilio status callback we store.
type CallStatusUpdate struct {
	CallSID     string
	Status      string
	DurationSec int
}

// HandleStatusCallback records Twilio's lifecycle status on the call row.
// Unknown SIDs are ignored.
func (s *CallService) HandleStatusCallback(ctx context.Context, u CallStatusUpdate) error {
	if u.CallSID == "" {
		return apperr.Validation("CallSid is required", nil)
	}
	call, err := s.calls.GetBySID(ctx, u.CallSID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("status callback for unknown call", "call_sid", u.CallSID)
			return nil
		}
		return apperr.Internal("failed to load call", err)
	}

	call.ProviderStatus = u.Status
	switch u.Status {
	case "completed":
		call.Status = models.StatusCompleted
	case "busy", "failed", "no-answer", "canceled":
		call.Status = models.StatusFailed
	}
	if u.DurationSec > 0 {
		call.DurationSec = u.DurationSec
	}
	if err := s.calls.Save(ctx, call); err != nil {
		return apperr.Internal("failed to update call", err)
	}
	metrics.RecordWebhook("twilio", "call-status", u.Status)
	return nil
}
