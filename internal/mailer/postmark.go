// Package mailer sends transactional email through Postmark.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

var ErrInvalidConfig = errors.New("invalid mailer config")

type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Tag      string
}

type PostmarkMailer struct {
	client  *postmark.Client
	from    string
	replyTo string
}

func NewPostmarkMailer(serverToken, accountToken, from, replyTo string) (*PostmarkMailer, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrInvalidConfig)
	}
	if from == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	return &PostmarkMailer{
		client:  postmark.NewClient(serverToken, accountToken),
		from:    from,
		replyTo: replyTo,
	}, nil
}

// Send returns the Postmark message id.
func (m *PostmarkMailer) Send(ctx context.Context, msg Message) (string, error) {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:       m.from,
		ReplyTo:    m.replyTo,
		To:         msg.To,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		TextBody:   msg.TextBody,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: true,
	})
	if err != nil {
		return "", fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return resp.MessageID, nil
}
