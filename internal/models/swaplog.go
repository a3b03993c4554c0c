package models

import (
	"time"
)

// SwapReason records why a submitted lineup's player was replaced.
type SwapReason string

const (
	SwapReasonInjury         SwapReason = "INJURY"
	SwapReasonProjectionDrop SwapReason = "PROJECTION_DROP"
	SwapReasonInactive       SwapReason = "INACTIVE"
	SwapReasonManual         SwapReason = "MANUAL"
)

// SwapLogEntry is the append-only record of a single-slot replacement.
type SwapLogEntry struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	LineupID      uint       `gorm:"not null;index" json:"lineup_id"`
	SlotName      string     `gorm:"size:20" json:"slot_name"`
	OldPlayerID   string     `gorm:"size:64;not null" json:"old_player_id"`
	OldPlayerName string     `json:"old_player_name"`
	NewPlayerID   string     `gorm:"size:64;not null" json:"new_player_id"`
	NewPlayerName string     `json:"new_player_name"`
	Reason        SwapReason `gorm:"size:20;not null" json:"reason"`
	OldProjection float64    `json:"old_projection"`
	NewProjection float64    `json:"new_projection"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (SwapLogEntry) TableName() string {
	return "swap_log"
}
