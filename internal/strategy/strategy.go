package strategy

import (
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/optimizer"
	"github.com/jstittsworth/lineup-manager/pkg/config"
)

// RuleTarget selects which players an exposure rule applies to. It is a
// closed tagged variant: a player id, a position, or a team.
type RuleTarget interface {
	isRuleTarget()
}

type PlayerTarget struct{ PlayerID string }
type PositionTarget struct{ Position string }
type TeamTarget struct{ Team string }

func (PlayerTarget) isRuleTarget()   {}
func (PositionTarget) isRuleTarget() {}
func (TeamTarget) isRuleTarget()     {}

// ExposureRule bounds how often matching players may appear across the
// generated lineup set.
type ExposureRule struct {
	Target RuleTarget
	Min    float64
	Max    float64
}

// Strategy is the concrete tournament policy handed to the optimizer:
// exposure bounds, stacking, ownership fade and diversity settings.
type Strategy struct {
	Name string

	DefaultMaxExposure float64
	DefaultMinExposure float64
	ExposureRules      []ExposureRule

	Correlations []optimizer.CorrelationRule
	TeamStacks   []optimizer.TeamStackRule

	Randomness     float64
	MinSalaryUsage float64

	FadeHighOwnership  bool
	OwnershipThreshold float64
	FadeMaxExposure    float64

	MinDistinctTeams int
}

// ForSport builds the strategy for a sport from configured defaults plus
// sport-specific overrides.
func ForSport(sport string, cfg *config.Config) Strategy {
	s := Strategy{
		Name:               sport + "_default",
		DefaultMaxExposure: cfg.DefaultMaxExposure,
		DefaultMinExposure: cfg.DefaultMinExposure,
		Randomness:         cfg.Randomness,
		MinSalaryUsage:     cfg.MinSalaryUsage,
		FadeHighOwnership:  true,
		OwnershipThreshold: 0.25,
		FadeMaxExposure:    0.30,
		MinDistinctTeams:   2,
	}

	switch sport {
	case "nfl":
		// Couple the QB with his pass catchers; cap volatile positions.
		s.Correlations = append(s.Correlations, optimizer.CorrelationRule{
			PrimaryPosition:     "QB",
			CorrelatedPositions: []string{"WR", "TE"},
			MinCorrelated:       1,
		})
		s.ExposureRules = append(s.ExposureRules,
			ExposureRule{Target: PositionTarget{Position: "QB"}, Max: 0.40},
			ExposureRule{Target: PositionTarget{Position: "DEF"}, Max: 0.30},
			ExposureRule{Target: PositionTarget{Position: "TE"}, Max: 0.40},
		)
	case "nba":
		// More chalk is playable in NBA.
		s.DefaultMaxExposure = maxf(s.DefaultMaxExposure, 0.60)
		s.ExposureRules = append(s.ExposureRules,
			ExposureRule{Target: PositionTarget{Position: "PG"}, Max: 0.50},
			ExposureRule{Target: PositionTarget{Position: "C"}, Max: 0.50},
		)
	case "mlb":
		// Pitchers are high variance; stack bats from one team.
		s.ExposureRules = append(s.ExposureRules,
			ExposureRule{Target: PositionTarget{Position: "P"}, Max: 0.35},
		)
		s.TeamStacks = append(s.TeamStacks, optimizer.TeamStackRule{
			Positions: []string{"C", "1B", "2B", "3B", "SS", "OF"},
			MinCount:  3,
			MaxCount:  5,
		})
	case "nhl":
		s.ExposureRules = append(s.ExposureRules,
			ExposureRule{Target: PositionTarget{Position: "G"}, Max: 0.30},
		)
		s.TeamStacks = append(s.TeamStacks, optimizer.TeamStackRule{
			Positions: []string{"C", "W"},
			MinCount:  2,
			MaxCount:  4,
		})
	}

	return s
}

// matches reports whether a rule target applies to a player.
func matches(t RuleTarget, p *models.Player) bool {
	switch target := t.(type) {
	case PlayerTarget:
		return target.PlayerID == p.BaseID()
	case PositionTarget:
		return target.Position == p.Position
	case TeamTarget:
		return target.Team == p.Team
	}
	return false
}

// specificity orders rule targets: player beats position beats team.
func specificity(t RuleTarget) int {
	switch t.(type) {
	case PlayerTarget:
		return 3
	case PositionTarget:
		return 2
	case TeamTarget:
		return 1
	}
	return 0
}

// Constraints resolves the strategy into the optimizer constraint set for a
// concrete player pool. Per player: the global default applies first, then
// team/position/player rules with more specific overriding less specific,
// then a per-player entity override, and finally the ownership fade, which
// only ever tightens. The effective bound is the minimum of the bounds left
// standing.
func (s Strategy) Constraints(players []models.Player, salaryCap int, seed int64) optimizer.Constraints {
	cons := optimizer.Constraints{
		SalaryCap:        salaryCap,
		MinSalaryUsage:   s.MinSalaryUsage,
		MinDistinctTeams: s.MinDistinctTeams,
		Randomness:       s.Randomness,
		Seed:             seed,
		MinExposure:      make(map[string]float64),
		MaxExposure:      make(map[string]float64),
		Correlations:     s.Correlations,
		TeamStacks:       s.TeamStacks,
	}

	faded := 0
	for i := range players {
		p := &players[i]
		base := p.BaseID()
		if _, seen := cons.MaxExposure[base]; seen {
			continue
		}

		min := s.DefaultMinExposure
		max := s.DefaultMaxExposure

		bestSpec := 0
		for _, rule := range s.ExposureRules {
			if !matches(rule.Target, p) {
				continue
			}
			spec := specificity(rule.Target)
			switch {
			case spec > bestSpec:
				bestSpec = spec
				if rule.Max > 0 {
					max = rule.Max
				}
				min = rule.Min
			case spec == bestSpec && bestSpec > 0:
				// Rules of equal specificity combine by the tighter bound.
				if rule.Max > 0 && rule.Max < max {
					max = rule.Max
				}
				if rule.Min > min {
					min = rule.Min
				}
			}
		}

		// Entity-level overrides are the most specific of all.
		if p.MaxExposure != nil {
			max = *p.MaxExposure
		}
		if p.MinExposure != nil {
			min = *p.MinExposure
		}

		if s.FadeHighOwnership && p.ProjectedOwnership > s.OwnershipThreshold {
			if s.FadeMaxExposure < max {
				max = s.FadeMaxExposure
				faded++
			}
		}

		if min > max {
			min = max
		}
		cons.MinExposure[base] = min
		cons.MaxExposure[base] = max
	}

	if faded > 0 {
		logrus.WithFields(logrus.Fields{
			"strategy": s.Name,
			"faded":    faded,
		}).Debug("Tightened exposure for high-ownership players")
	}

	return cons
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
