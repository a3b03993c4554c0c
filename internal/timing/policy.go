package timing

import (
	"fmt"
	"time"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// Policy holds the submission timing thresholds and the tiered projection
// refresh cadence.
type Policy struct {
	FillRateThreshold float64       // submit once this full
	SubmitWindow      time.Duration // or once this close to lock
	StopEditing       time.Duration // no edits inside this window

	// Refresh intervals by time-to-lock tier.
	RefreshDefault     time.Duration // > 24h out
	RefreshDayOf       time.Duration // 6-24h
	RefreshApproaching time.Duration // 1-6h
	RefreshImminent    time.Duration // <= 1h
}

// DefaultPolicy returns the observed production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		FillRateThreshold:  0.70,
		SubmitWindow:       2 * time.Hour,
		StopEditing:        5 * time.Minute,
		RefreshDefault:     360 * time.Minute,
		RefreshDayOf:       120 * time.Minute,
		RefreshApproaching: 30 * time.Minute,
		RefreshImminent:    10 * time.Minute,
	}
}

// Decision is the outcome of one timing evaluation for a contest.
type Decision struct {
	State        models.SubmitState
	ShouldSubmit bool
	CanEdit      bool
	Reason       string
}

// Evaluate runs the submission state machine for a contest at the given
// instant. External-check failures never reach here; a caller that could not
// refresh contest data simply skips the evaluation and retries next tick.
func Evaluate(c *models.Contest, now time.Time, p Policy) Decision {
	timeToLock := c.TimeToLock(now)

	if c.Locked(now) {
		return Decision{
			State:  models.SubmitLocked,
			Reason: "contest locked",
		}
	}

	canEdit := timeToLock > p.StopEditing

	if c.SubmitState == models.SubmitDone {
		return Decision{
			State:   models.SubmitDone,
			CanEdit: canEdit,
			Reason:  "already submitted",
		}
	}

	if timeToLock <= p.StopEditing {
		return Decision{
			State:  c.SubmitState,
			Reason: fmt.Sprintf("too close to lock (%.0f min remaining)", timeToLock.Minutes()),
		}
	}

	fillRate := c.FillRate()
	if fillRate >= p.FillRateThreshold {
		return Decision{
			State:        models.SubmitReady,
			ShouldSubmit: true,
			CanEdit:      canEdit,
			Reason:       fmt.Sprintf("fill rate %.0f%% >= %.0f%% threshold", fillRate*100, p.FillRateThreshold*100),
		}
	}
	if timeToLock <= p.SubmitWindow {
		return Decision{
			State:        models.SubmitReady,
			ShouldSubmit: true,
			CanEdit:      canEdit,
			Reason:       fmt.Sprintf("%.0f min to lock <= %.0f min window", timeToLock.Minutes(), p.SubmitWindow.Minutes()),
		}
	}

	return Decision{
		State:   models.SubmitNotReady,
		CanEdit: canEdit,
		Reason:  fmt.Sprintf("waiting (fill %.0f%%, %.1fh to lock)", fillRate*100, timeToLock.Hours()),
	}
}

// RefreshInterval returns the projection refresh interval for a contest this
// far from lock.
func (p Policy) RefreshInterval(timeToLock time.Duration) time.Duration {
	switch {
	case timeToLock > 24*time.Hour:
		return p.RefreshDefault
	case timeToLock > 6*time.Hour:
		return p.RefreshDayOf
	case timeToLock > time.Hour:
		return p.RefreshApproaching
	default:
		return p.RefreshImminent
	}
}

// ShouldRefresh reports whether the contest's tier interval has elapsed since
// its last projection refresh. Each contest tracks its own last-refresh
// timestamp, durable across restarts.
func (p Policy) ShouldRefresh(c *models.Contest, now time.Time) bool {
	if c.Locked(now) {
		return false
	}
	if c.LastProjectionRefresh.IsZero() {
		return true
	}
	interval := p.RefreshInterval(c.TimeToLock(now))
	return now.Sub(c.LastProjectionRefresh) >= interval
}
