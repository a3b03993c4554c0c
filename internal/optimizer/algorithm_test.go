package optimizer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

func nflSlots() models.SlotList {
	return models.ClassicSlots("nfl")
}

func player(id, team, position string, salary int, points float64) models.Player {
	return models.Player{
		ID:                id,
		Name:              "Player " + id,
		Team:              team,
		Position:          position,
		EligiblePositions: pq.StringArray{position},
		Salary:            salary,
		ProjectedPoints:   points,
		InjuryStatus:      models.InjuryNone,
	}
}

func smallNFLPool() []models.Player {
	return []models.Player{
		player("qb1", "BUF", "QB", 8200, 23.5),
		player("qb2", "PHI", "QB", 7900, 22.1),
		player("qb3", "DET", "QB", 6400, 18.2),
		player("rb1", "SF", "RB", 9200, 24.0),
		player("rb2", "PHI", "RB", 8000, 20.5),
		player("rb3", "DET", "RB", 7400, 18.8),
		player("rb4", "TB", "RB", 5800, 13.9),
		player("wr1", "MIA", "WR", 8800, 21.4),
		player("wr2", "DAL", "WR", 8400, 20.2),
		player("wr3", "DET", "WR", 7800, 18.6),
		player("wr4", "PHI", "WR", 7600, 17.9),
		player("wr5", "GB", "WR", 5200, 11.8),
		player("te1", "KC", "TE", 6800, 15.1),
		player("te2", "DET", "TE", 5600, 12.4),
		player("def1", "SF", "DEF", 3600, 8.5),
		player("def2", "BUF", "DEF", 3200, 7.2),
	}
}

func baseConstraints(cap int) Constraints {
	return Constraints{
		SalaryCap:   cap,
		MinExposure: map[string]float64{},
		MaxExposure: map[string]float64{},
	}
}

// bruteForceBest exhaustively enumerates every slot-eligible, salary-feasible,
// duplicate-free assignment and returns the maximum total projection.
func bruteForceBest(players []models.Player, slots models.SlotList, cap int) float64 {
	best := -1.0
	chosen := make([]int, 0, len(slots))
	used := make(map[int]bool)

	var recurse func(slot int, salary int, points float64)
	recurse = func(slot int, salary int, points float64) {
		if salary > cap {
			return
		}
		if slot == len(slots) {
			if points > best {
				best = points
			}
			return
		}
		for i := range players {
			if used[i] || !slots[slot].Accepts(&players[i]) {
				continue
			}
			used[i] = true
			chosen = append(chosen, i)
			recurse(slot+1, salary+players[i].Salary, points+players[i].ProjectedPoints)
			chosen = chosen[:len(chosen)-1]
			used[i] = false
		}
	}
	recurse(0, 0, 0)
	return best
}

func TestOptimizeMatchesBruteForce(t *testing.T) {
	players := smallNFLPool()
	slots := nflSlots()
	cons := baseConstraints(50000)

	lineups, err := Optimize(context.Background(), players, slots, cons, 1)
	require.NoError(t, err)
	require.Len(t, lineups, 1)

	expected := bruteForceBest(players, slots, 50000)
	assert.InDelta(t, expected, lineups[0].ProjectedPoints, 1e-9)
	assert.LessOrEqual(t, lineups[0].TotalSalary, 50000)
	assert.Len(t, lineups[0].Players, len(slots))
}

func TestOptimizeRespectsSlotEligibility(t *testing.T) {
	players := smallNFLPool()
	slots := nflSlots()

	lineups, err := Optimize(context.Background(), players, slots, baseConstraints(50000), 3)
	require.NoError(t, err)

	byID := make(map[string]models.Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	for _, lineup := range lineups {
		seen := make(map[string]bool)
		for _, slot := range lineup.Players {
			p := byID[slot.PlayerID]
			def := slots[slot.SlotIndex]
			assert.True(t, def.Accepts(&p), "player %s not eligible for slot %s", p.ID, def.Name)
			assert.False(t, seen[slot.PlayerID], "player %s appears twice", slot.PlayerID)
			seen[slot.PlayerID] = true
		}
	}
}

func TestOptimizeDistinctLineups(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.Randomness = 0.1
	cons.Seed = 7

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 5)
	require.NoError(t, err)
	require.Len(t, lineups, 5)

	hashes := make(map[string]bool)
	for _, lineup := range lineups {
		assert.False(t, hashes[lineup.LineupHash], "duplicate lineup hash %s", lineup.LineupHash)
		hashes[lineup.LineupHash] = true
	}
}

func TestOptimizeDeterministicWithSeed(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.Randomness = 0.1
	cons.Seed = 42

	first, err := Optimize(context.Background(), players, nflSlots(), cons, 4)
	require.NoError(t, err)
	second, err := Optimize(context.Background(), players, nflSlots(), cons, 4)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].LineupHash, second[i].LineupHash)
	}
}

func TestOptimizeMaxExposure(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.Randomness = 0.1
	cons.Seed = 3
	// The best RB may appear in at most half of the four lineups.
	cons.MaxExposure["rb1"] = 0.5

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 4)
	require.NoError(t, err)

	appearances := 0
	for _, lineup := range lineups {
		if lineup.HasPlayer("rb1") {
			appearances++
		}
	}
	assert.LessOrEqual(t, appearances, 2)
}

func TestOptimizeMinExposure(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.Randomness = 0.1
	cons.Seed = 3
	// The cheap WR must appear in every lineup.
	cons.MinExposure["wr5"] = 1.0

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 3)
	require.NoError(t, err)

	for _, lineup := range lineups {
		assert.True(t, lineup.HasPlayer("wr5"), "wr5 missing from a lineup despite min exposure 1.0")
	}
}

func TestOptimizeMinSalaryUsage(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(60000)
	cons.MinSalaryUsage = 0.95

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, float64(lineups[0].TotalSalary), 0.95*60000)
}

func TestOptimizeMinDistinctTeams(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.MinDistinctTeams = 3

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 1)
	require.NoError(t, err)

	byID := make(map[string]models.Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	teams := make(map[string]bool)
	for _, slot := range lineups[0].Players {
		teams[byID[slot.PlayerID].Team] = true
	}
	assert.GreaterOrEqual(t, len(teams), 3)
}

func TestOptimizeCorrelationRule(t *testing.T) {
	players := smallNFLPool()
	cons := baseConstraints(50000)
	cons.Correlations = []CorrelationRule{
		{PrimaryPosition: "QB", CorrelatedPositions: []string{"WR", "TE"}, MinCorrelated: 1},
	}

	lineups, err := Optimize(context.Background(), players, nflSlots(), cons, 1)
	require.NoError(t, err)

	byID := make(map[string]models.Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	var qbTeam string
	for _, slot := range lineups[0].Players {
		if byID[slot.PlayerID].Position == "QB" {
			qbTeam = byID[slot.PlayerID].Team
		}
	}
	require.NotEmpty(t, qbTeam)

	correlated := 0
	for _, slot := range lineups[0].Players {
		p := byID[slot.PlayerID]
		if p.Team == qbTeam && (p.Position == "WR" || p.Position == "TE") {
			correlated++
		}
	}
	assert.GreaterOrEqual(t, correlated, 1)
}

func TestOptimizeExcludesZeroProjectionAndInjured(t *testing.T) {
	players := smallNFLPool()
	players[0].ProjectedPoints = 0 // qb1 out of the pool
	players[3].InjuryStatus = models.InjuryOut

	lineups, err := Optimize(context.Background(), players, nflSlots(), baseConstraints(50000), 1)
	require.NoError(t, err)
	assert.False(t, lineups[0].HasPlayer("qb1"))
	assert.False(t, lineups[0].HasPlayer("rb1"))
}

func TestOptimizeInsufficientPool(t *testing.T) {
	players := smallNFLPool()[:5]

	_, err := Optimize(context.Background(), players, nflSlots(), baseConstraints(50000), 1)
	var poolErr *InsufficientPlayerPoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, len(nflSlots()), poolErr.Required)
}

func TestOptimizeInfeasibleSalaryCap(t *testing.T) {
	players := smallNFLPool()

	_, err := Optimize(context.Background(), players, nflSlots(), baseConstraints(10000), 1)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}

func TestOptimizeTimeout(t *testing.T) {
	// Flat projections keep the bound from pruning, forcing a wide search.
	var players []models.Player
	for i := 0; i < 8; i++ {
		players = append(players, player(fmt.Sprintf("qb%02d", i), "T1", "QB", 5000, 10.0))
	}
	for i := 0; i < 16; i++ {
		players = append(players, player(fmt.Sprintf("rb%02d", i), "T2", "RB", 5000, 10.0))
		players = append(players, player(fmt.Sprintf("wr%02d", i), "T3", "WR", 5000, 10.0))
	}
	for i := 0; i < 8; i++ {
		players = append(players, player(fmt.Sprintf("te%02d", i), "T4", "TE", 5000, 10.0))
		players = append(players, player(fmt.Sprintf("df%02d", i), "T5", "DEF", 5000, 10.0))
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := Optimize(ctx, players, nflSlots(), baseConstraints(50000), 1)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestOptimizeRejectsNonPositiveCount(t *testing.T) {
	_, err := Optimize(context.Background(), smallNFLPool(), nflSlots(), baseConstraints(50000), 0)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}
