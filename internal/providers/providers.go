// Package providers declares the external collaborators this system consumes.
// Implementations live outside the core: browser automation, data vendors and
// the contest platform are integrated behind these interfaces.
package providers

import (
	"context"
	"time"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// PlayerPoolProvider returns the priced player pool for a slate, including
// live injury status. Pools replace the stored players wholesale on each
// refresh.
type PlayerPoolProvider interface {
	GetPlayers(ctx context.Context, slateExternalID string) ([]models.Player, error)
}

// ProjectionProvider refreshes projected points and ownership for a pool.
type ProjectionProvider interface {
	GetProjections(ctx context.Context, sport string, players []models.Player) ([]models.Player, error)
}

// ContestInfo is the live platform view of a contest.
type ContestInfo struct {
	ExternalID    string
	MaxEntries    int
	EntryFee      float64
	FillCount     int
	TotalCapacity int
	LockTime      time.Time
}

// ContestInfoProvider returns fresh fill counts and lock times.
type ContestInfoProvider interface {
	GetContest(ctx context.Context, externalID string) (*ContestInfo, error)
}

// SubmitResult is the gateway's answer to a submission attempt.
type SubmitResult struct {
	Success         bool
	ExternalEntryID string
}

// SubmissionGateway submits and edits lineups on the contest platform.
type SubmissionGateway interface {
	Submit(ctx context.Context, lineup *models.Lineup) (*SubmitResult, error)
	Edit(ctx context.Context, lineup *models.Lineup, externalEntryID string) (*SubmitResult, error)
}
