package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender texts codes through the Twilio messaging API.
type TwilioSender struct {
	api  messageCreator
	from string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from}
}

func (t *TwilioSender) SendSMSCode(_ context.Context, number, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(number)
	params.SetBody(fmt.Sprintf("Your OTP for signup is: %s. Please use this OTP to complete your registration.", code))

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	if resp.Sid != nil {
		slog.Info("sms dispatched", "to", number, "sid", *resp.Sid)
	}
	return nil
}
