package models

import (
	"time"

	"github.com/lib/pq"
)

// InjuryStatus is the platform-reported availability of a player.
type InjuryStatus string

const (
	InjuryNone           InjuryStatus = "NONE"
	InjuryQuestionable   InjuryStatus = "QUESTIONABLE"
	InjuryOut            InjuryStatus = "OUT"
	InjuryInjuredReserve InjuryStatus = "INJURED_RESERVE"
	InjuryInactive       InjuryStatus = "INACTIVE"
)

// RulesOut reports whether the status makes a player unplayable. QUESTIONABLE
// players stay in the pool.
func (s InjuryStatus) RulesOut() bool {
	switch s {
	case InjuryOut, InjuryInjuredReserve, InjuryInactive:
		return true
	}
	return false
}

// VariantKind tags the single-game pool entry a player was derived from.
type VariantKind string

const (
	VariantCaptain VariantKind = "CAPTAIN"
	VariantFlex    VariantKind = "FLEX"
)

// Variant is the (base player, kind) pair for single-game pool entries. It is
// first-class data, never encoded into the player id.
type Variant struct {
	BasePlayerID string
	Kind         VariantKind
}

type Player struct {
	ID                 string         `gorm:"primaryKey;size:64" json:"id"`
	SlateID            uint           `gorm:"primaryKey;autoIncrement:false" json:"slate_id"`
	Name               string         `gorm:"not null" json:"name"`
	Team               string         `gorm:"size:10" json:"team"`
	Opponent           string         `gorm:"size:10" json:"opponent"`
	Position           string         `gorm:"size:10;not null" json:"position"`
	EligiblePositions  pq.StringArray `gorm:"type:text[]" json:"eligible_positions"`
	Salary             int            `gorm:"not null" json:"salary"`
	ProjectedPoints    float64        `json:"projected_points"`
	ProjectedOwnership float64        `json:"projected_ownership"`
	InjuryStatus       InjuryStatus   `gorm:"size:20;default:NONE" json:"injury_status"`
	MinExposure        *float64       `json:"min_exposure,omitempty"`
	MaxExposure        *float64       `json:"max_exposure,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`

	// Set by the single-game pool transform, never persisted.
	Variant *Variant `gorm:"-" json:"-"`
}

func (Player) TableName() string {
	return "players"
}

// BaseID returns the id of the underlying player, resolving single-game
// variants back to their base.
func (p *Player) BaseID() string {
	if p.Variant != nil {
		return p.Variant.BasePlayerID
	}
	return p.ID
}

// Key uniquely identifies a pool entry, distinguishing the captain and flex
// legs of the same base player.
func (p *Player) Key() string {
	if p.Variant != nil {
		return p.ID + "|" + string(p.Variant.Kind)
	}
	return p.ID
}

// EligibleFor reports whether the player can fill a slot eligible for the
// given positions.
func (p *Player) EligibleFor(positions []string) bool {
	eligible := p.EligiblePositions
	if len(eligible) == 0 {
		eligible = pq.StringArray{p.Position}
	}
	for _, pos := range positions {
		for _, own := range eligible {
			if own == pos {
				return true
			}
		}
	}
	return false
}
