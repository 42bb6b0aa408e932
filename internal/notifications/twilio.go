package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/richxcame/attendance-tracker/pkg/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioClient sends SMS through the Twilio REST API
type TwilioClient struct {
	client     *twilio.RestClient
	fromNumber string
}

var _ SMSSender = (*TwilioClient)(nil)

// NewTwilioClient creates a Twilio client from configuration
func NewTwilioClient(cfg config.TwilioConfig) (*TwilioClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("twilio account sid, auth token and from number are required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioClient{client: client, fromNumber: cfg.FromNumber}, nil
}

// SendSMS sends body to the given E.164 number and returns the message SID.
// The Twilio client does not take a context; ctx is only checked up front.
func (t *TwilioClient) SendSMS(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}

	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
