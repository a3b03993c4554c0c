package models

import (
	"time"

	"gorm.io/datatypes"
)

// Slate is a shared player pool with one lock time, spanning one or more
// contests. Lineups are generated per slate and later bound to contests.
type Slate struct {
	ID         uint                         `gorm:"primaryKey" json:"id"`
	ExternalID string                       `gorm:"index" json:"external_id"`
	Sport      string                       `gorm:"size:10;not null" json:"sport"`
	SalaryCap  int                          `gorm:"not null" json:"salary_cap"`
	LockTime   time.Time                    `gorm:"not null" json:"lock_time"`
	SingleGame bool                         `gorm:"default:false" json:"single_game"`
	Slots      datatypes.JSONType[SlotList] `json:"slots"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`

	Contests []Contest `gorm:"foreignKey:SlateID" json:"contests,omitempty"`
	Lineups  []Lineup  `gorm:"foreignKey:SlateID" json:"lineups,omitempty"`
}

func (Slate) TableName() string {
	return "slates"
}

// SlotPlan returns the slate's roster layout.
func (s *Slate) SlotPlan() SlotList {
	return s.Slots.Data()
}

// SlotCount returns how many roster spots a lineup for this slate has.
func (s *Slate) SlotCount() int {
	return len(s.Slots.Data())
}
