package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/repository"
	"github.com/talkah/talkah-backend/internal/validator"
)

type SMSInput struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	Topic       string `json:"topic" validate:"required,max=500"`
	// MessageCount is the number of inbound replies handled before the
	// conversation closes.
	MessageCount int `json:"message_count" validate:"min=1,max=20"`
}

type SMSService struct {
	usage     *UsageService
	sms       SMSStore
	telephony Telephony
	ai        Completer
	validate  *validator.Validator
}

func NewSMSService(usage *UsageService, sms SMSStore, tel Telephony, completer Completer, v *validator.Validator) *SMSService {
	return &SMSService{
		usage:     usage,
		sms:       sms,
		telephony: tel,
		ai:        completer,
		validate:  v,
	}
}

// Start opens a conversation and sends the first message. One conversation
// counts as one text against the plan.
func (s *SMSService) Start(ctx context.Context, userID uuid.UUID, in SMSInput) (*models.SmsConversation, error) {
	if err := s.validate.Check(in); err != nil {
		return nil, err
	}
	if err := s.usage.Require(ctx, userID, plans.ActionText); err != nil {
		return nil, err
	}

	conv := &models.SmsConversation{
		ID:           uuid.New(),
		UserID:       userID,
		PhoneNumber:  in.PhoneNumber,
		Topic:        in.Topic,
		Status:       models.StatusInitiated,
		MaxExchanges: in.MessageCount,
	}
	if err := s.sms.CreateConversation(ctx, conv); err != nil {
		return nil, apperr.Internal("failed to create conversation", err)
	}

	opening, err := s.ai.Complete(ctx, smsOpeningMessages(in.Topic))
	if err != nil {
		slog.Warn("AI opening message failed, using template", "error", err)
		opening = smsOpeningTemplate(in.Topic)
	}

	if err := s.send(ctx, conv, opening); err != nil {
		conv.Status = models.StatusFailed
		if saveErr := s.sms.SaveConversation(ctx, conv); saveErr != nil {
			slog.Error("failed to mark conversation failed", "conversation_id", conv.ID.String(), "error", saveErr.Error())
		}
		metrics.RecordAction(string(plans.ActionText), "failed")
		return nil, apperr.Upstream("failed to send sms", err)
	}

	conv.Status = models.StatusSent
	if err := s.sms.SaveConversation(ctx, conv); err != nil {
		slog.Error("failed to update conversation", "conversation_id", conv.ID.String(), "error", err.Error())
	}

	s.usage.record(ctx, userID, plans.ActionText)
	metrics.RecordAction(string(plans.ActionText), "sent")
	slog.Info("sms conversation started", "user_id", userID.String(), "conversation_id", conv.ID.String())
	return conv, nil
}

// InboundSMS is a message received from Twilio's messaging webhook.
type InboundSMS struct {
	From       string
	Body       string
	MessageSID string
}

// HandleInbound records a reply and answers it. Once the exchange count
// reaches the conversation's maximum, the conversation completes and only
// ClosingMessage is sent. Messages from numbers without an active
// conversation are dropped.
func (s *SMSService) HandleInbound(ctx context.Context, in InboundSMS) error {
	conv, err := s.sms.ActiveConversationForPhone(ctx, in.From)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("inbound sms without active conversation", "from", in.From)
			return nil
		}
		return apperr.Internal("failed to load conversation", err)
	}
	if conv.Done() {
		return nil
	}

	inbound := &models.SmsMessage{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Direction:      models.DirectionInbound,
		Body:           in.Body,
		Status:         "received",
	}
	if in.MessageSID != "" {
		inbound.MessageSID = &in.MessageSID
	}
	if err := s.sms.AddMessage(ctx, inbound); err != nil {
		return apperr.Internal("failed to store inbound message", err)
	}

	conv.ExchangeCount++
	if conv.ExchangeCount >= conv.MaxExchanges {
		conv.Status = models.StatusCompleted
		if err := s.sms.SaveConversation(ctx, conv); err != nil {
			return apperr.Internal("failed to complete conversation", err)
		}
		slog.Info("sms conversation completed", "conversation_id", conv.ID.String(), "exchanges", conv.ExchangeCount)
		if err := s.send(ctx, conv, ClosingMessage); err != nil {
			return apperr.Upstream("failed to send closing message", err)
		}
		return nil
	}

	if err := s.sms.SaveConversation(ctx, conv); err != nil {
		return apperr.Internal("failed to update conversation", err)
	}

	history, err := s.sms.Messages(ctx, conv.ID)
	if err != nil {
		return apperr.Internal("failed to load conversation history", err)
	}
	reply, err := s.ai.Complete(ctx, smsReplyMessages(conv.Topic, history))
	if err != nil {
		slog.Warn("AI sms reply failed, using template", "conversation_id", conv.ID.String(), "error", err)
		reply = smsReplyTemplate
	}
	if err := s.send(ctx, conv, reply); err != nil {
		return apperr.Upstream("failed to send sms reply", err)
	}
	return nil
}

// send delivers body and stores it as an outbound message.
func (s *SMSService) send(ctx context.Context, conv *models.SmsConversation, body string) error {
	res, err := s.telephony.SendSMS(ctx, conv.PhoneNumber, body)
	if err != nil {
		return err
	}
	msg := &models.SmsMessage{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		Direction:      models.DirectionOutbound,
		Body:           body,
		MessageSID:     &res.SID,
		Status:         res.Status,
	}
	if err := s.sms.AddMessage(ctx, msg); err != nil {
		slog.Error("failed to store outbound message", "conversation_id", conv.ID.String(), "error", err.Error())
	}
	return nil
}
