package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// LineupStatus tracks a lineup through its lifecycle. Transitions are
// monotonic: nothing ever returns to generated, and swapped/edited only
// alternate after submission (the late-swap loop).
type LineupStatus string

const (
	StatusGenerated LineupStatus = "generated"
	StatusAssigned  LineupStatus = "assigned"
	StatusSubmitted LineupStatus = "submitted"
	StatusSwapped   LineupStatus = "swapped"
	StatusEdited    LineupStatus = "edited"
	StatusFailed    LineupStatus = "failed"
)

var lineupTransitions = map[LineupStatus][]LineupStatus{
	StatusGenerated: {StatusAssigned, StatusFailed},
	StatusAssigned:  {StatusSubmitted, StatusFailed},
	StatusSubmitted: {StatusSwapped, StatusEdited, StatusFailed},
	StatusSwapped:   {StatusEdited, StatusFailed},
	StatusEdited:    {StatusSwapped, StatusFailed},
	StatusFailed:    {},
}

// CanTransition reports whether from -> to is a legal status change.
// Same-state transitions are allowed so repeated passes stay idempotent.
func CanTransition(from, to LineupStatus) bool {
	if from == to {
		return from != StatusFailed
	}
	for _, next := range lineupTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Lineup struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	SlateID         uint         `gorm:"not null;uniqueIndex:idx_slate_hash" json:"slate_id"`
	ContestID       *uint        `gorm:"index" json:"contest_id,omitempty"`
	LineupHash      string       `gorm:"size:64;not null;uniqueIndex:idx_slate_hash" json:"lineup_hash"`
	TotalSalary     int          `gorm:"not null" json:"total_salary"`
	ProjectedPoints float64      `gorm:"not null" json:"projected_points"`
	Status          LineupStatus `gorm:"size:20;default:generated;index" json:"status"`
	ExternalEntryID string       `gorm:"index" json:"external_entry_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	Players []LineupPlayer `gorm:"foreignKey:LineupID" json:"players"`
}

func (Lineup) TableName() string {
	return "lineups"
}

// LineupPlayer is one (slot, player) pair of a lineup. Salary and projection
// are copied at assembly time so swaps can recompute totals by delta.
type LineupPlayer struct {
	LineupID        uint    `gorm:"primaryKey;autoIncrement:false" json:"lineup_id"`
	SlotIndex       int     `gorm:"primaryKey;autoIncrement:false" json:"slot_index"`
	SlotName        string  `gorm:"size:20;not null" json:"slot_name"`
	PlayerID        string  `gorm:"size:64;not null" json:"player_id"`
	PlayerName      string  `json:"player_name"`
	Salary          int     `json:"salary"`
	ProjectedPoints float64 `json:"projected_points"`
}

func (LineupPlayer) TableName() string {
	return "lineup_players"
}

// HashPlayerIDs computes the order-independent content hash of a player-id
// set. The same set of players always hashes the same regardless of slot
// order.
func HashPlayerIDs(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:])
}

// PlayerIDs returns the ids of all players in slot order.
func (l *Lineup) PlayerIDs() []string {
	ids := make([]string, len(l.Players))
	for i, p := range l.Players {
		ids[i] = p.PlayerID
	}
	return ids
}

// ContentKeys returns the identity key of each slot. A captain slot keys on
// the (player, CAPTAIN) pair, so single-game lineups that differ only by
// captain choice stay distinct lineups.
func (l *Lineup) ContentKeys() []string {
	keys := make([]string, len(l.Players))
	for i, p := range l.Players {
		keys[i] = p.PlayerID
		if p.SlotName == string(VariantCaptain) {
			keys[i] = p.PlayerID + "|" + string(VariantCaptain)
		}
	}
	return keys
}

// ComputeHash recomputes and stores the lineup's content hash.
func (l *Lineup) ComputeHash() string {
	l.LineupHash = HashPlayerIDs(l.ContentKeys())
	return l.LineupHash
}

// RecalculateTotals recomputes salary and projection from the slot entries.
func (l *Lineup) RecalculateTotals() {
	salary := 0
	points := 0.0
	for _, p := range l.Players {
		salary += p.Salary
		points += p.ProjectedPoints
	}
	l.TotalSalary = salary
	l.ProjectedPoints = points
}

// HasPlayer reports whether the player already occupies a slot.
func (l *Lineup) HasPlayer(playerID string) bool {
	for _, p := range l.Players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// SlotByIndex returns the slot entry at the given index, or nil.
func (l *Lineup) SlotByIndex(idx int) *LineupPlayer {
	for i := range l.Players {
		if l.Players[i].SlotIndex == idx {
			return &l.Players[i]
		}
	}
	return nil
}

// Terminal reports whether the lineup can no longer change.
func (l *Lineup) Terminal() bool {
	return l.Status == StatusFailed
}
