package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilio struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestTwilioSenderSend(t *testing.T) {
	fake := &fakeTwilio{}
	sender := &TwilioSender{client: fake, from: "+15005550006"}

	require.NoError(t, sender.Send(context.Background(), "254712345678", "Booking confirmed"))
	require.NotNil(t, fake.params)
	assert.Equal(t, "+254712345678", *fake.params.To)
	assert.Equal(t, "+15005550006", *fake.params.From)
	assert.Equal(t, "Booking confirmed", *fake.params.Body)
}

func TestTwilioSenderErrors(t *testing.T) {
	fake := &fakeTwilio{err: errors.New("21211 invalid 'To'")}
	sender := &TwilioSender{client: fake, from: "+15005550006"}
	assert.ErrorContains(t, sender.Send(context.Background(), "+254712345678", "x"), "failed to send sms")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake.params = nil
	assert.ErrorIs(t, sender.Send(ctx, "+254712345678", "x"), context.Canceled)
	assert.Nil(t, fake.params)
}
