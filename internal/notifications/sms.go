package notifications

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"rental-portal/admin-portal-backend/internal/config"
)

// SMSSender delivers short text messages.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type twilioAPI interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	client twilioAPI
	from   string
}

func NewTwilioSender(cfg config.SMSConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client.Api, from: cfg.FromNumber}
}

// Send posts body to the E.164 number to. The Twilio client has no context
// support, so ctx is only checked before the call.
func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(e164(to))
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}

// e164 prefixes bare country-code numbers such as 254712345678 with '+'.
func e164(phone string) string {
	if phone == "" || phone[0] == '+' {
		return phone
	}
	return "+" + phone
}
