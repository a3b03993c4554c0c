package swap

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/optimizer"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

// Snapshot is the fresh pool view a swap pass runs against, keyed by player
// id. Players absent from the snapshot are treated as projection zero.
type Snapshot map[string]models.Player

// MakeSnapshot indexes a refreshed player pool by id.
func MakeSnapshot(players []models.Player) Snapshot {
	snap := make(Snapshot, len(players))
	for _, p := range players {
		snap[p.ID] = p
	}
	return snap
}

// NoEligibleReplacementError is recorded when a flagged slot has no legal
// substitute. The lineup is left untouched.
type NoEligibleReplacementError struct {
	LineupID uint
	PlayerID string
	SlotName string
}

func (e *NoEligibleReplacementError) Error() string {
	return fmt.Sprintf("no eligible replacement for player %s in slot %s of lineup %d", e.PlayerID, e.SlotName, e.LineupID)
}

// Candidate is one flagged (lineup, slot) pair.
type Candidate struct {
	LineupID           uint
	SlotIndex          int
	SlotName           string
	PlayerID           string
	PlayerName         string
	Reason             models.SwapReason
	OriginalProjection float64
	CurrentProjection  float64
}

// Result is the per-candidate outcome of a swap pass. A pass always returns
// one Result per candidate; one failure never blocks the others.
type Result struct {
	LineupID    uint
	SlotName    string
	OldPlayerID string
	NewPlayerID string
	Reason      models.SwapReason
	Err         error
}

// Notifier receives the structured event for every executed swap.
type Notifier interface {
	LineupSwapped(entry models.SwapLogEntry)
}

// Engine finds broken slots in live lineups and replaces them with the best
// legal substitute, one slot at a time.
type Engine struct {
	db            *database.DB
	logger        *logrus.Logger
	notifier      Notifier
	dropThreshold float64
}

func NewEngine(db *database.DB, logger *logrus.Logger, notifier Notifier, dropThreshold float64) *Engine {
	return &Engine{
		db:            db,
		logger:        logger,
		notifier:      notifier,
		dropThreshold: dropThreshold,
	}
}

// captainSlot is the slot name the single-game collapse assigns to the
// boosted leg.
const captainSlot = "CAPTAIN"

// liveStatuses are the lineups a swap pass inspects: everything already on
// the platform that can still legally move to swapped.
var liveStatuses = []models.LineupStatus{
	models.StatusSubmitted,
	models.StatusSwapped,
	models.StatusEdited,
}

// LiveStatuses exposes the swap-eligible lineup statuses.
func LiveStatuses() []models.LineupStatus {
	return append([]models.LineupStatus(nil), liveStatuses...)
}

// Detect flags (lineup, slot) pairs against a fresh snapshot: players ruled
// out by injury, players gone from the pool (recorded as a projection drop to
// zero), and projection collapses at or beyond the drop threshold.
func (e *Engine) Detect(lineups []models.Lineup, snap Snapshot) []Candidate {
	var candidates []Candidate
	for _, lineup := range lineups {
		for _, slot := range lineup.Players {
			current, ok := snap[slot.PlayerID]
			cand := Candidate{
				LineupID:           lineup.ID,
				SlotIndex:          slot.SlotIndex,
				SlotName:           slot.SlotName,
				PlayerID:           slot.PlayerID,
				PlayerName:         slot.PlayerName,
				OriginalProjection: slot.ProjectedPoints,
			}

			// Captain slots store the boosted projection; the snapshot holds
			// base values, so the comparison happens on the boosted scale.
			currentProj := current.ProjectedPoints
			if slot.SlotName == captainSlot {
				currentProj = current.ProjectedPoints * optimizer.CaptainMultiplier
			}

			switch {
			case !ok:
				cand.Reason = models.SwapReasonProjectionDrop
				cand.CurrentProjection = 0
			case current.InjuryStatus == models.InjuryInactive:
				cand.Reason = models.SwapReasonInactive
				cand.CurrentProjection = currentProj
			case current.InjuryStatus.RulesOut():
				cand.Reason = models.SwapReasonInjury
				cand.CurrentProjection = currentProj
			case slot.ProjectedPoints > 0 &&
				(slot.ProjectedPoints-currentProj)/slot.ProjectedPoints >= e.dropThreshold:
				cand.Reason = models.SwapReasonProjectionDrop
				cand.CurrentProjection = currentProj
			default:
				continue
			}

			candidates = append(candidates, cand)
		}
	}

	if len(candidates) > 0 {
		e.logger.WithFields(logrus.Fields{
			"candidates": len(candidates),
			"lineups":    len(lineups),
		}).Info("Swap detection flagged players")
	}
	return candidates
}

// flagged mirrors Detect's predicate for pool players considered as
// replacements: a substitute must not itself be broken.
func flagged(p *models.Player) bool {
	return p.InjuryStatus.RulesOut() || p.ProjectedPoints <= 0
}

// SelectReplacement picks the best legal substitute for a flagged slot:
// highest current projection, ties broken by lower salary, then
// lexicographic id. The salary budget is the lineup total minus the salary
// of every other kept player.
func (e *Engine) SelectReplacement(lineup *models.Lineup, cand Candidate, slate *models.Slate, snap Snapshot) (*models.Player, error) {
	slot := lineup.SlotByIndex(cand.SlotIndex)
	if slot == nil {
		return nil, fmt.Errorf("slot %d not found in lineup %d", cand.SlotIndex, cand.LineupID)
	}

	othersSalary := lineup.TotalSalary - slot.Salary
	budget := lineup.TotalSalary - othersSalary

	var slotDef *models.RosterSlot
	if slots := slate.SlotPlan(); cand.SlotIndex < len(slots) {
		slotDef = &slots[cand.SlotIndex]
	}

	var best *models.Player
	for id := range snap {
		p := snap[id]
		if lineup.HasPlayer(p.ID) {
			continue
		}
		if flagged(&p) {
			continue
		}
		if p.Salary > budget {
			continue
		}
		// Single-game slots accept any pool player; classic slots check
		// position eligibility.
		if !slate.SingleGame && slotDef != nil && !slotDef.Accepts(&p) {
			continue
		}

		if best == nil || replacementLess(best, &p) {
			clone := p
			best = &clone
		}
	}

	if best == nil {
		return nil, &NoEligibleReplacementError{
			LineupID: cand.LineupID,
			PlayerID: cand.PlayerID,
			SlotName: cand.SlotName,
		}
	}
	return best, nil
}

// replacementLess reports whether b beats a under the selection order.
func replacementLess(a, b *models.Player) bool {
	if b.ProjectedPoints != a.ProjectedPoints {
		return b.ProjectedPoints > a.ProjectedPoints
	}
	if b.Salary != a.Salary {
		return b.Salary < a.Salary
	}
	return b.ID < a.ID
}

// Execute atomically replaces one slot: swap the player, recompute totals by
// delta, append the swap log entry and mark the lineup swapped. Nothing is
// persisted when any step fails.
func (e *Engine) Execute(cand Candidate, replacement *models.Player, slate *models.Slate) error {
	newProj := replacement.ProjectedPoints
	if slate.SingleGame && cand.SlotName == captainSlot {
		newProj = replacement.ProjectedPoints * optimizer.CaptainMultiplier
	}

	var entry models.SwapLogEntry
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var lineup models.Lineup
		if err := tx.Preload("Players").First(&lineup, cand.LineupID).Error; err != nil {
			return err
		}
		if !models.CanTransition(lineup.Status, models.StatusSwapped) {
			return fmt.Errorf("lineup %d in status %s cannot be swapped", lineup.ID, lineup.Status)
		}

		slot := lineup.SlotByIndex(cand.SlotIndex)
		if slot == nil || slot.PlayerID != cand.PlayerID {
			// The slot changed since detection; drop the stale decision.
			return fmt.Errorf("stale swap candidate for lineup %d slot %d", cand.LineupID, cand.SlotIndex)
		}

		oldSalary := slot.Salary
		oldProj := slot.ProjectedPoints

		if err := tx.Model(&models.LineupPlayer{}).
			Where("lineup_id = ? AND slot_index = ?", lineup.ID, cand.SlotIndex).
			Updates(map[string]interface{}{
				"player_id":        replacement.ID,
				"player_name":      replacement.Name,
				"salary":           replacement.Salary,
				"projected_points": newProj,
			}).Error; err != nil {
			return err
		}

		slot.PlayerID = replacement.ID
		slot.PlayerName = replacement.Name
		slot.Salary = replacement.Salary
		slot.ProjectedPoints = newProj

		newTotalSalary := lineup.TotalSalary - oldSalary + replacement.Salary
		newTotalPoints := lineup.ProjectedPoints - oldProj + newProj
		if err := tx.Model(&lineup).Updates(map[string]interface{}{
			"total_salary":     newTotalSalary,
			"projected_points": newTotalPoints,
			"lineup_hash":      lineup.ComputeHash(),
			"status":           models.StatusSwapped,
		}).Error; err != nil {
			return err
		}

		entry = models.SwapLogEntry{
			LineupID:      lineup.ID,
			SlotName:      cand.SlotName,
			OldPlayerID:   cand.PlayerID,
			OldPlayerName: cand.PlayerName,
			NewPlayerID:   replacement.ID,
			NewPlayerName: replacement.Name,
			Reason:        cand.Reason,
			OldProjection: oldProj,
			NewProjection: newProj,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"lineup_id":  cand.LineupID,
		"slot":       cand.SlotName,
		"old_player": cand.PlayerName,
		"new_player": replacement.Name,
		"reason":     cand.Reason,
	}).Info("Swapped lineup player")

	if e.notifier != nil {
		e.notifier.LineupSwapped(entry)
	}
	return nil
}

// ProcessLineups runs one full detect -> select -> execute pass over the
// given lineups. Slots are handled strictly one at a time; the returned list
// carries one entry per flagged candidate.
func (e *Engine) ProcessLineups(lineups []models.Lineup, slate *models.Slate, snap Snapshot) []Result {
	candidates := e.Detect(lineups, snap)
	results := make([]Result, 0, len(candidates))

	// Deterministic order: by lineup, then slot.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].LineupID != candidates[j].LineupID {
			return candidates[i].LineupID < candidates[j].LineupID
		}
		return candidates[i].SlotIndex < candidates[j].SlotIndex
	})

	for _, cand := range candidates {
		res := Result{
			LineupID:    cand.LineupID,
			SlotName:    cand.SlotName,
			OldPlayerID: cand.PlayerID,
			Reason:      cand.Reason,
		}

		// Re-load so earlier swaps in this pass are visible.
		var lineup models.Lineup
		if err := e.db.Preload("Players").First(&lineup, cand.LineupID).Error; err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		slot := lineup.SlotByIndex(cand.SlotIndex)
		if slot == nil || slot.PlayerID != cand.PlayerID {
			res.Err = fmt.Errorf("stale swap candidate for lineup %d slot %d", cand.LineupID, cand.SlotIndex)
			results = append(results, res)
			continue
		}

		replacement, err := e.SelectReplacement(&lineup, cand, slate, snap)
		if err != nil {
			res.Err = err
			e.logger.WithFields(logrus.Fields{
				"lineup_id": cand.LineupID,
				"player":    cand.PlayerName,
				"slot":      cand.SlotName,
			}).Warn("No eligible replacement found")
			results = append(results, res)
			continue
		}

		if err := e.Execute(cand, replacement, slate); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		res.NewPlayerID = replacement.ID
		results = append(results, res)
	}

	return results
}
