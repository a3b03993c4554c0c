package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// ErrNotConfigured is returned by provider calls when no platform base URL
// is set. Callers treat it as a deferral.
var ErrNotConfigured = errors.New("platform provider not configured")

// MockGateway accepts every submission without touching a platform. Used in
// development and dry runs.
type MockGateway struct {
	logger *logrus.Logger
}

func NewMockGateway(logger *logrus.Logger) *MockGateway {
	return &MockGateway{logger: logger}
}

func (g *MockGateway) Submit(ctx context.Context, lineup *models.Lineup) (*SubmitResult, error) {
	entryID := fmt.Sprintf("mock-%s", uuid.NewString())
	g.logger.WithFields(logrus.Fields{
		"lineup_id": lineup.ID,
		"entry_id":  entryID,
	}).Info("MOCK SUBMIT")
	return &SubmitResult{Success: true, ExternalEntryID: entryID}, nil
}

func (g *MockGateway) Edit(ctx context.Context, lineup *models.Lineup, externalEntryID string) (*SubmitResult, error) {
	g.logger.WithFields(logrus.Fields{
		"lineup_id": lineup.ID,
		"entry_id":  externalEntryID,
	}).Info("MOCK EDIT")
	return &SubmitResult{Success: true, ExternalEntryID: externalEntryID}, nil
}

// NullProvider satisfies the data provider interfaces when no platform is
// configured. Every call returns ErrNotConfigured; the scheduler logs and
// defers.
type NullProvider struct{}

func (NullProvider) GetPlayers(ctx context.Context, slateExternalID string) ([]models.Player, error) {
	return nil, ErrNotConfigured
}

func (NullProvider) GetProjections(ctx context.Context, sport string, players []models.Player) ([]models.Player, error) {
	return nil, ErrNotConfigured
}

func (NullProvider) GetContest(ctx context.Context, externalID string) (*ContestInfo, error) {
	return nil, ErrNotConfigured
}
