package optimizer

import (
	"context"
	"strings"

	"github.com/lib/pq"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// CaptainMultiplier is the scoring boost of the captain slot. The boost
// applies to projection only; salary is never multiplied.
const CaptainMultiplier = 1.5

const (
	slotCaptain = "CAPTAIN"
	slotFlex    = "FLEX"
)

// BuildSingleGamePool duplicates every eligible player into a flex leg and a
// captain leg for the 1-captain + 4-flex format. The captain leg carries the
// boosted projection and captain-only eligibility; the flex leg is unchanged
// apart from flex-only eligibility. The (base id, kind) pair travels as
// first-class data on each entry.
func BuildSingleGamePool(players []models.Player) []models.Player {
	pool := make([]models.Player, 0, 2*len(players))
	for _, p := range players {
		if p.ProjectedPoints <= 0 || p.InjuryStatus.RulesOut() {
			continue
		}

		flex := p
		flex.EligiblePositions = pq.StringArray{string(models.VariantFlex)}
		flex.Variant = &models.Variant{BasePlayerID: p.ID, Kind: models.VariantFlex}

		captain := p
		captain.ProjectedPoints = p.ProjectedPoints * CaptainMultiplier
		captain.EligiblePositions = pq.StringArray{string(models.VariantCaptain)}
		captain.Variant = &models.Variant{BasePlayerID: p.ID, Kind: models.VariantCaptain}

		pool = append(pool, flex, captain)
	}
	return pool
}

// OptimizeSingleGame runs the optimizer over the variant pool and collapses
// the result back to base players. Exactly one captain per lineup is
// structural: only captain legs fit the captain slot, and a base player
// never occupies two slots. The minimum distinct-team constraint is relaxed
// to 1 since only two teams play.
func OptimizeSingleGame(ctx context.Context, players []models.Player, cons Constraints, count int) ([]models.Lineup, error) {
	pool := BuildSingleGamePool(players)
	slots := models.SingleGameSlots()

	if len(pool)/2 < len(slots) {
		return nil, &InsufficientPlayerPoolError{Eligible: len(pool) / 2, Required: len(slots)}
	}

	cons.MinDistinctTeams = 1
	lineups, err := Optimize(ctx, pool, slots, cons, count)
	if err != nil {
		return nil, err
	}

	CollapseVariants(lineups)
	return lineups, nil
}

// CollapseVariants rewrites optimizer output over a variant pool into
// base-player lineups: slots tagged CAPTAIN or FLEX, the flex legs carrying
// the un-boosted base projection and the captain leg the boosted value.
func CollapseVariants(lineups []models.Lineup) {
	for li := range lineups {
		for pi := range lineups[li].Players {
			slot := &lineups[li].Players[pi]
			if strings.HasPrefix(slot.SlotName, slotCaptain) {
				slot.SlotName = slotCaptain
			} else {
				slot.SlotName = slotFlex
			}
		}
		lineups[li].RecalculateTotals()
		lineups[li].ComputeHash()
	}
}
