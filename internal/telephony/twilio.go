// Package telephony places calls and sends SMS through Twilio.
package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

type CallRequest struct {
	To                string
	TwimlURL          string
	StatusCallbackURL string
}

// Result identifies the provider resource created by a call or message.
type Result struct {
	SID    string
	Status string
}

type TwilioClient struct {
	client    *twilio.RestClient
	from      string
	validator twilioclient.RequestValidator
}

func NewTwilioClient(accountSID, authToken, from string) *TwilioClient {
	return &TwilioClient{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:      from,
		validator: twilioclient.NewRequestValidator(authToken),
	}
}

func (t *TwilioClient) PlaceCall(_ context.Context, req CallRequest) (*Result, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(t.from)
	params.SetUrl(req.TwimlURL)
	if req.StatusCallbackURL != "" {
		params.SetStatusCallback(req.StatusCallbackURL)
		params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	}

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return nil, fmt.Errorf("twilio create call: %w", err)
	}
	if resp.Sid == nil {
		return nil, errors.New("twilio create call: missing sid")
	}

	result := &Result{SID: *resp.Sid}
	if resp.Status != nil {
		result.Status = string(*resp.Status)
	}
	return result, nil
}

func (t *TwilioClient) SendSMS(_ context.Context, to, body string) (*Result, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio create message: %w", err)
	}
	if resp.Sid == nil {
		return nil, errors.New("twilio create message: missing sid")
	}

	result := &Result{SID: *resp.Sid}
	if resp.Status != nil {
		result.Status = string(*resp.Status)
	}
	return result, nil
}

// ValidSignature checks an X-Twilio-Signature header against the full
// request URL and its form parameters.
func (t *TwilioClient) ValidSignature(url string, params map[string]string, signature string) bool {
	return t.validator.Validate(url, params, signature)
}

// SayTwiML renders a voice response that speaks message and hangs up.
func SayTwiML(message string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: message, Voice: "Polly.Joanna"},
		&twiml.VoiceHangup{},
	})
}

// EmptyMessagingTwiML acknowledges an inbound SMS without replying through
// TwiML; replies are sent through the REST API.
func EmptyMessagingTwiML() string {
	out, err := twiml.Messages(nil)
	if err != nil {
		return `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	}
	return out
}
