package models

import (
	"time"
)

// SubmitState is the submission timing state of a contest.
type SubmitState string

const (
	SubmitNotReady SubmitState = "NOT_READY"
	SubmitReady    SubmitState = "READY_TO_SUBMIT"
	SubmitDone     SubmitState = "SUBMITTED"
	SubmitLocked   SubmitState = "LOCKED"
)

type Contest struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SlateID       uint      `gorm:"not null;index" json:"slate_id"`
	ExternalID    string    `gorm:"index" json:"external_id"`
	Name          string    `json:"name"`
	EntryFee      float64   `json:"entry_fee"`
	MaxEntries    int       `gorm:"default:1" json:"max_entries"` // entries we may submit
	TotalCapacity int       `json:"total_capacity"`               // total entrant capacity
	FillCount     int       `json:"fill_count"`                   // current entrant count
	LockTime      time.Time `gorm:"not null" json:"lock_time"`

	SubmitState SubmitState `gorm:"size:20;default:NOT_READY" json:"submit_state"`

	// Durable per-contest refresh timestamp driving the tiered projection
	// cadence. Zero means never refreshed.
	LastProjectionRefresh time.Time `json:"last_projection_refresh"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Slate Slate `gorm:"foreignKey:SlateID" json:"slate,omitempty"`
}

func (Contest) TableName() string {
	return "contests"
}

// FillRate returns current entrants over total capacity.
func (c *Contest) FillRate() float64 {
	if c.TotalCapacity <= 0 {
		return 0
	}
	return float64(c.FillCount) / float64(c.TotalCapacity)
}

// TimeToLock returns the remaining time before the contest locks. Negative
// once locked.
func (c *Contest) TimeToLock(now time.Time) time.Duration {
	return c.LockTime.Sub(now)
}

// Locked reports whether the contest has locked.
func (c *Contest) Locked(now time.Time) bool {
	return !now.Before(c.LockTime)
}
