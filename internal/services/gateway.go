package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/providers"
)

// BreakerGateway wraps the submission gateway in a circuit breaker so a
// failing platform does not get hammered on every tick. A tripped breaker
// surfaces as an ordinary error; timing-policy callers treat it as a
// deferred decision.
type BreakerGateway struct {
	inner   providers.SubmissionGateway
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *logrus.Logger
}

func NewBreakerGateway(inner providers.SubmissionGateway, failureThreshold int, timeout time.Duration, logger *logrus.Logger) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:    "submission-gateway",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state change")
		},
	}
	return &BreakerGateway{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		timeout: timeout,
		logger:  logger,
	}
}

func (g *BreakerGateway) Submit(ctx context.Context, lineup *models.Lineup) (*providers.SubmitResult, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.Submit(callCtx, lineup)
	})
	if err != nil {
		return nil, fmt.Errorf("submission gateway: %w", err)
	}
	return result.(*providers.SubmitResult), nil
}

func (g *BreakerGateway) Edit(ctx context.Context, lineup *models.Lineup, externalEntryID string) (*providers.SubmitResult, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.inner.Edit(callCtx, lineup, externalEntryID)
	})
	if err != nil {
		return nil, fmt.Errorf("submission gateway: %w", err)
	}
	return result.(*providers.SubmitResult), nil
}
