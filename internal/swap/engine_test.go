package swap

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

type recordingNotifier struct {
	entries []models.SwapLogEntry
}

func (n *recordingNotifier) LineupSwapped(entry models.SwapLogEntry) {
	n.entries = append(n.entries, entry)
}

func testEngine(t *testing.T) (*Engine, *database.DB, *recordingNotifier) {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Slate{},
		&models.Lineup{},
		&models.LineupPlayer{},
		&models.SwapLogEntry{},
	))

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	notifier := &recordingNotifier{}
	return NewEngine(db, logger, notifier, 0.20), db, notifier
}

func poolPlayer(id, team, position string, salary int, points float64) models.Player {
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

func classicSlate() *models.Slate {
	return &models.Slate{
		ID:        1,
		Sport:     "nfl",
		SalaryCap: 50000,
		LockTime:  time.Now().Add(time.Hour),
		Slots: datatypes.NewJSONType(models.SlotList{
			{Name: "QB", Positions: []string{"QB"}},
			{Name: "RB", Positions: []string{"RB"}},
			{Name: "WR", Positions: []string{"WR"}},
		}),
	}
}

func submittedLineup(t *testing.T, db *database.DB) *models.Lineup {
	t.Helper()
	lineup := &models.Lineup{
		SlateID: 1,
		Status:  models.StatusSubmitted,
		Players: []models.LineupPlayer{
			{SlotIndex: 0, SlotName: "QB", PlayerID: "qb1", PlayerName: "Player qb1", Salary: 8000, ProjectedPoints: 22.0},
			{SlotIndex: 1, SlotName: "RB", PlayerID: "rb1", PlayerName: "Player rb1", Salary: 7000, ProjectedPoints: 18.0},
			{SlotIndex: 2, SlotName: "WR", PlayerID: "wr1", PlayerName: "Player wr1", Salary: 6000, ProjectedPoints: 15.0},
		},
	}
	lineup.RecalculateTotals()
	lineup.ComputeHash()
	require.NoError(t, db.Create(lineup).Error)
	return lineup
}

func healthySnapshot() Snapshot {
	return MakeSnapshot([]models.Player{
		poolPlayer("qb1", "BUF", "QB", 8000, 22.0),
		poolPlayer("rb1", "SF", "RB", 7000, 18.0),
		poolPlayer("wr1", "MIA", "WR", 6000, 15.0),
		poolPlayer("qb2", "PHI", "QB", 7800, 20.0),
		poolPlayer("rb2", "DET", "RB", 6800, 16.0),
		poolPlayer("wr2", "DAL", "WR", 5600, 13.0),
	})
}

func TestDetectReasons(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)

	tests := []struct {
		name   string
		mutate func(Snapshot)
		player string
		reason models.SwapReason
	}{
		{
			name: "ruled out by injury",
			mutate: func(s Snapshot) {
				p := s["qb1"]
				p.InjuryStatus = models.InjuryOut
				s["qb1"] = p
			},
			player: "qb1",
			reason: models.SwapReasonInjury,
		},
		{
			name: "inactive status",
			mutate: func(s Snapshot) {
				p := s["rb1"]
				p.InjuryStatus = models.InjuryInactive
				s["rb1"] = p
			},
			player: "rb1",
			reason: models.SwapReasonInactive,
		},
		{
			name:   "missing from pool",
			mutate: func(s Snapshot) { delete(s, "wr1") },
			player: "wr1",
			reason: models.SwapReasonProjectionDrop,
		},
		{
			name: "projection collapse",
			mutate: func(s Snapshot) {
				p := s["wr1"]
				p.ProjectedPoints = 11.0 // down 26.7%
				s["wr1"] = p
			},
			player: "wr1",
			reason: models.SwapReasonProjectionDrop,
		},
		{
			name: "small dip below threshold",
			mutate: func(s Snapshot) {
				p := s["wr1"]
				p.ProjectedPoints = 14.0
				s["wr1"] = p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := healthySnapshot()
			tt.mutate(snap)

			candidates := engine.Detect([]models.Lineup{*lineup}, snap)
			if tt.player == "" {
				assert.Empty(t, candidates)
				return
			}
			require.Len(t, candidates, 1)
			assert.Equal(t, tt.player, candidates[0].PlayerID)
			assert.Equal(t, tt.reason, candidates[0].Reason)
		})
	}
}

func TestLiveStatuses(t *testing.T) {
	// Swap passes only inspect lineups already on the platform.
	assert.NotContains(t, LiveStatuses(), models.StatusGenerated)
	assert.NotContains(t, LiveStatuses(), models.StatusAssigned)
	assert.Contains(t, LiveStatuses(), models.StatusSubmitted)
	assert.Contains(t, LiveStatuses(), models.StatusSwapped)
	assert.Contains(t, LiveStatuses(), models.StatusEdited)
}

func TestSelectReplacementOrdering(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()

	snap := healthySnapshot()
	// Two candidate QBs under budget: qb3 projects higher; qb4 ties qb3 but
	// costs more.
	snap["qb3"] = poolPlayer("qb3", "DET", "QB", 7500, 21.0)
	snap["qb4"] = poolPlayer("qb4", "GB", "QB", 7900, 21.0)
	p := snap["qb1"]
	p.InjuryStatus = models.InjuryOut
	snap["qb1"] = p

	cand := Candidate{
		LineupID:  lineup.ID,
		SlotIndex: 0,
		SlotName:  "QB",
		PlayerID:  "qb1",
		Reason:    models.SwapReasonInjury,
	}

	replacement, err := engine.SelectReplacement(lineup, cand, slate, snap)
	require.NoError(t, err)
	assert.Equal(t, "qb3", replacement.ID, "highest projection, ties broken by lower salary")
}

func TestSelectReplacementRespectsBudgetAndEligibility(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()

	snap := healthySnapshot()
	// qb5 projects best but exceeds the outgoing player's salary budget.
	snap["qb5"] = poolPlayer("qb5", "KC", "QB", 9000, 25.0)
	p := snap["qb1"]
	p.InjuryStatus = models.InjuryOut
	snap["qb1"] = p

	cand := Candidate{LineupID: lineup.ID, SlotIndex: 0, SlotName: "QB", PlayerID: "qb1"}
	replacement, err := engine.SelectReplacement(lineup, cand, slate, snap)
	require.NoError(t, err)
	assert.NotEqual(t, "qb5", replacement.ID)
	assert.Equal(t, "qb2", replacement.ID)
	assert.LessOrEqual(t, replacement.Salary, 8000)
}

func TestSelectReplacementSkipsFlaggedAndPresent(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()

	snap := healthySnapshot()
	p := snap["qb1"]
	p.InjuryStatus = models.InjuryOut
	snap["qb1"] = p
	// The only other QB is itself hurt.
	q := snap["qb2"]
	q.InjuryStatus = models.InjuryInjuredReserve
	snap["qb2"] = q

	cand := Candidate{LineupID: lineup.ID, SlotIndex: 0, SlotName: "QB", PlayerID: "qb1"}
	_, err := engine.SelectReplacement(lineup, cand, slate, snap)

	var noRepl *NoEligibleReplacementError
	require.ErrorAs(t, err, &noRepl)
	assert.Equal(t, "qb1", noRepl.PlayerID)
}

func TestExecuteSwap(t *testing.T) {
	engine, db, notifier := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()
	originalHash := lineup.LineupHash

	replacement := poolPlayer("qb2", "PHI", "QB", 7800, 20.0)
	cand := Candidate{
		LineupID:           lineup.ID,
		SlotIndex:          0,
		SlotName:           "QB",
		PlayerID:           "qb1",
		PlayerName:         "Player qb1",
		Reason:             models.SwapReasonInjury,
		OriginalProjection: 22.0,
	}

	require.NoError(t, engine.Execute(cand, &replacement, slate))

	var updated models.Lineup
	require.NoError(t, db.Preload("Players").First(&updated, lineup.ID).Error)

	assert.Equal(t, models.StatusSwapped, updated.Status)
	assert.False(t, updated.HasPlayer("qb1"), "outgoing player must be gone")
	assert.True(t, updated.HasPlayer("qb2"))
	assert.Equal(t, 7800+7000+6000, updated.TotalSalary)
	assert.InDelta(t, 20.0+18.0+15.0, updated.ProjectedPoints, 1e-9)
	assert.NotEqual(t, originalHash, updated.LineupHash)

	var entries []models.SwapLogEntry
	require.NoError(t, db.Where("lineup_id = ?", lineup.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "qb1", entries[0].OldPlayerID)
	assert.Equal(t, "qb2", entries[0].NewPlayerID)
	assert.Equal(t, models.SwapReasonInjury, entries[0].Reason)
	assert.InDelta(t, 22.0, entries[0].OldProjection, 1e-9)
	assert.InDelta(t, 20.0, entries[0].NewProjection, 1e-9)

	require.Len(t, notifier.entries, 1)
	assert.Equal(t, lineup.ID, notifier.entries[0].LineupID)
}

func TestExecuteRejectsStaleCandidate(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()

	replacement := poolPlayer("qb2", "PHI", "QB", 7800, 20.0)
	cand := Candidate{LineupID: lineup.ID, SlotIndex: 0, SlotName: "QB", PlayerID: "someone-else"}

	err := engine.Execute(cand, &replacement, slate)
	require.Error(t, err)

	// Untouched.
	var updated models.Lineup
	require.NoError(t, db.First(&updated, lineup.ID).Error)
	assert.Equal(t, models.StatusSubmitted, updated.Status)
}

func TestExecuteRejectsIllegalStatus(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := submittedLineup(t, db)
	slate := classicSlate()
	require.NoError(t, db.Model(lineup).Update("status", models.StatusGenerated).Error)

	replacement := poolPlayer("qb2", "PHI", "QB", 7800, 20.0)
	cand := Candidate{LineupID: lineup.ID, SlotIndex: 0, SlotName: "QB", PlayerID: "qb1"}

	err := engine.Execute(cand, &replacement, slate)
	require.Error(t, err)
}

func TestProcessLineupsOneFailureNeverBlocks(t *testing.T) {
	engine, db, _ := testEngine(t)
	slate := classicSlate()

	first := submittedLineup(t, db)

	second := &models.Lineup{
		SlateID: 1,
		Status:  models.StatusSubmitted,
		Players: []models.LineupPlayer{
			{SlotIndex: 0, SlotName: "QB", PlayerID: "qb2", PlayerName: "Player qb2", Salary: 7800, ProjectedPoints: 20.0},
			{SlotIndex: 1, SlotName: "RB", PlayerID: "rb2", PlayerName: "Player rb2", Salary: 6800, ProjectedPoints: 16.0},
			{SlotIndex: 2, SlotName: "WR", PlayerID: "wr2", PlayerName: "Player wr2", Salary: 5600, ProjectedPoints: 13.0},
		},
	}
	second.RecalculateTotals()
	second.ComputeHash()
	require.NoError(t, db.Create(second).Error)

	// Both QBs go down. Only the second lineup has a viable replacement.
	snap := healthySnapshot()
	for _, id := range []string{"qb1", "qb2"} {
		p := snap[id]
		p.InjuryStatus = models.InjuryOut
		snap[id] = p
	}
	// qb3 fits the first lineup's budget (8000) but not the second's (7800).
	snap["qb3"] = poolPlayer("qb3", "DET", "QB", 7801, 19.0)

	results := engine.ProcessLineups([]models.Lineup{*first, *second}, slate, snap)
	require.Len(t, results, 2)

	// Deterministic order: by lineup id.
	assert.Equal(t, first.ID, results[0].LineupID)
	assert.Equal(t, second.ID, results[1].LineupID)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "qb3", results[0].NewPlayerID)

	var noRepl *NoEligibleReplacementError
	require.Error(t, results[1].Err)
	assert.ErrorAs(t, results[1].Err, &noRepl)

	var swapped models.Lineup
	require.NoError(t, db.First(&swapped, first.ID).Error)
	assert.Equal(t, models.StatusSwapped, swapped.Status)

	var untouched models.Lineup
	require.NoError(t, db.First(&untouched, second.ID).Error)
	assert.Equal(t, models.StatusSubmitted, untouched.Status)
}

func singleGameSlate() *models.Slate {
	return &models.Slate{
		ID:         1,
		Sport:      "nfl",
		SalaryCap:  50000,
		LockTime:   time.Now().Add(time.Hour),
		SingleGame: true,
		Slots:      datatypes.NewJSONType(models.SingleGameSlots()),
	}
}

// singleGameLineup stores the captain at the boosted projection, the way the
// single-game optimizer persists it.
func singleGameLineup(t *testing.T, db *database.DB) *models.Lineup {
	t.Helper()
	lineup := &models.Lineup{
		SlateID: 1,
		Status:  models.StatusSubmitted,
		Players: []models.LineupPlayer{
			{SlotIndex: 0, SlotName: "CAPTAIN", PlayerID: "qb1", Salary: 8000, ProjectedPoints: 33.0},
			{SlotIndex: 1, SlotName: "FLEX", PlayerID: "rb1", Salary: 7000, ProjectedPoints: 18.0},
			{SlotIndex: 2, SlotName: "FLEX", PlayerID: "wr1", Salary: 6000, ProjectedPoints: 15.0},
			{SlotIndex: 3, SlotName: "FLEX", PlayerID: "rb2", Salary: 6800, ProjectedPoints: 16.0},
			{SlotIndex: 4, SlotName: "FLEX", PlayerID: "wr2", Salary: 5600, ProjectedPoints: 13.0},
		},
	}
	lineup.RecalculateTotals()
	lineup.ComputeHash()
	require.NoError(t, db.Create(lineup).Error)
	return lineup
}

func TestDetectUnchangedCaptainNotFlagged(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := singleGameLineup(t, db)

	// The snapshot carries base projections; the stored captain value is
	// boosted. An unchanged captain is not a drop.
	candidates := engine.Detect([]models.Lineup{*lineup}, healthySnapshot())
	assert.Empty(t, candidates)
}

func TestDetectCaptainDropOnBoostedScale(t *testing.T) {
	engine, db, _ := testEngine(t)
	lineup := singleGameLineup(t, db)

	snap := healthySnapshot()
	p := snap["qb1"]
	p.ProjectedPoints = 15.0 // boosted 22.5 vs stored 33.0, down 31.8%
	snap["qb1"] = p

	candidates := engine.Detect([]models.Lineup{*lineup}, snap)
	require.Len(t, candidates, 1)
	assert.Equal(t, "qb1", candidates[0].PlayerID)
	assert.Equal(t, models.SwapReasonProjectionDrop, candidates[0].Reason)
	assert.InDelta(t, 22.5, candidates[0].CurrentProjection, 1e-9)
}

func TestSingleGameSwapKeepsCaptainBoost(t *testing.T) {
	engine, db, _ := testEngine(t)
	slate := singleGameSlate()
	lineup := singleGameLineup(t, db)

	replacement := poolPlayer("qb2", "PHI", "QB", 7800, 20.0)
	cand := Candidate{LineupID: lineup.ID, SlotIndex: 0, SlotName: "CAPTAIN", PlayerID: "qb1", Reason: models.SwapReasonInjury}

	require.NoError(t, engine.Execute(cand, &replacement, slate))

	var updated models.Lineup
	require.NoError(t, db.Preload("Players").First(&updated, lineup.ID).Error)
	captain := updated.SlotByIndex(0)
	require.NotNil(t, captain)
	assert.Equal(t, "qb2", captain.PlayerID)
	assert.InDelta(t, 30.0, captain.ProjectedPoints, 1e-9, "captain projection re-boosted")
	assert.Equal(t, 7800, captain.Salary, "salary never multiplied")
}
