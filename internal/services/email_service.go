package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/mailer"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/validator"
)

// EmailInput carries either a finished Body or a Prompt the AI drafts the
// body from.
type EmailInput struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Prompt    string `json:"prompt" validate:"required_without=Body,max=2000"`
	Body      string `json:"body" validate:"max=10000"`
}

type EmailService struct {
	usage    *UsageService
	emails   EmailStore
	mailer   Mailer
	ai       Completer
	validate *validator.Validator
}

func NewEmailService(usage *UsageService, emails EmailStore, m Mailer, completer Completer, v *validator.Validator) *EmailService {
	return &EmailService{
		usage:    usage,
		emails:   emails,
		mailer:   m,
		ai:       completer,
		validate: v,
	}
}

func (s *EmailService) Send(ctx context.Context, userID uuid.UUID, in EmailInput) (*models.Email, error) {
	if err := s.validate.Check(in); err != nil {
		return nil, err
	}
	if err := s.usage.Require(ctx, userID, plans.ActionEmail); err != nil {
		return nil, err
	}

	body := in.Body
	if body == "" {
		draft, err := s.ai.Complete(ctx, emailDraftMessages(in.Subject, in.Prompt))
		if err != nil {
			return nil, apperr.Upstream("failed to draft email", err)
		}
		body = draft
	}

	email := &models.Email{
		ID:        uuid.New(),
		UserID:    userID,
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Body:      body,
	}

	messageID, sendErr := s.mailer.Send(ctx, mailer.Message{
		To:       in.Recipient,
		Subject:  in.Subject,
		TextBody: body,
		Tag:      "talkah-email",
	})
	if sendErr != nil {
		email.Status = models.StatusFailed
		email.ErrorMessage = sendErr.Error()
	} else {
		email.Status = models.StatusSent
		email.ProviderMessageID = messageID
	}

	if err := s.emails.Create(ctx, email); err != nil {
		if sendErr != nil {
			return nil, apperr.Internal("failed to store email", err)
		}
		slog.Error("failed to store sent email", "user_id", userID.String(), "message_id", messageID, "error", err.Error())
	}

	if sendErr != nil {
		metrics.RecordAction(string(plans.ActionEmail), "failed")
		return nil, apperr.Upstream("failed to send email", sendErr)
	}

	s.usage.record(ctx, userID, plans.ActionEmail)
	metrics.RecordAction(string(plans.ActionEmail), "sent")
	slog.Info("email sent", "user_id", userID.String(), "email_id", email.ID.String())
	return email, nil
}
