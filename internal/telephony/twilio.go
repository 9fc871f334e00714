package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"salesvoice/internal/config"
)

// TwilioDialer places outbound calls through the Twilio REST API. Status
// and speech events come back on the shared voice webhook.
type TwilioDialer struct {
	client     *twilio.RestClient
	fromNumber string
	webhookURL string
	record     bool
}

func NewTwilioDialer(cfg config.TwilioConfig, webhookURL string) *TwilioDialer {
	return &TwilioDialer{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		fromNumber: cfg.FromNumber,
		webhookURL: webhookURL,
		record:     cfg.RecordCalls,
	}
}

// PlaceCall starts an outbound call and returns the provider call id.
func (d *TwilioDialer) PlaceCall(ctx context.Context, to string) (string, error) {
	params := &api.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(d.fromNumber)
	params.SetUrl(d.webhookURL)
	params.SetStatusCallback(d.webhookURL)
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	if d.record {
		params.SetRecord(true)
	}

	call, err := d.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("telephony: place call to %s: %w", to, err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("telephony: provider returned no call sid")
	}
	return *call.Sid, nil
}
