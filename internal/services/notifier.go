package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"
)

// Notifier delivers events out of band.
type Notifier interface {
	Notify(event Event) error
}

// MockNotifier logs events instead of sending them. Used in development.
type MockNotifier struct {
	logger *logrus.Logger
}

func NewMockNotifier(logger *logrus.Logger) *MockNotifier {
	return &MockNotifier{logger: logger}
}

func (n *MockNotifier) Notify(event Event) error {
	n.logger.WithFields(logrus.Fields{
		"type":       event.Type,
		"lineup_id":  event.LineupID,
		"old_player": event.OldPlayer,
		"new_player": event.NewPlayer,
		"reason":     event.Reason,
	}).Info("MOCK ALERT")
	return nil
}

// TwilioNotifier sends event alerts via SMS, rate limited so a bad pass
// cannot burn through the account.
type TwilioNotifier struct {
	client     *twilio.RestClient
	fromNumber string
	toNumber   string
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewTwilioNotifier(accountSID, authToken, fromNumber, toNumber string, perMinute int, logger *logrus.Logger) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{
		client:     client,
		fromNumber: fromNumber,
		toNumber:   toNumber,
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		logger:     logger,
	}
}

func (n *TwilioNotifier) Notify(event Event) error {
	if !n.limiter.Allow() {
		return fmt.Errorf("alert rate limit exceeded, dropping %s", event.Type)
	}

	body := formatAlert(event)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.toNumber)
	params.SetFrom(n.fromNumber)
	params.SetBody(body)

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send alert SMS: %w", err)
	}

	n.logger.WithField("type", event.Type).Debug("Alert SMS sent")
	return nil
}

func formatAlert(event Event) string {
	switch event.Type {
	case EventLineupSwapped:
		return fmt.Sprintf("Lineup %d: swapped %s -> %s (%s)",
			event.LineupID, event.Detail["old_name"], event.Detail["new_name"], event.Reason)
	case EventSwapNoCandidate:
		return fmt.Sprintf("Lineup %d: no replacement for %s (%s)",
			event.LineupID, event.OldPlayer, event.Reason)
	case EventLineupFailed:
		return fmt.Sprintf("Lineup %d: submission failed (%s)", event.LineupID, event.Reason)
	default:
		return fmt.Sprintf("%s: lineup=%d contest=%d %s", event.Type, event.LineupID, event.ContestID, event.Reason)
	}
}
