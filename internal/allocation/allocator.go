package allocation

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// CapacityExceededError signals that generated lineups outnumber the total
// contest capacity. It is informational: the overflow lineups remain
// generated, they are never discarded.
type CapacityExceededError struct {
	Unassigned    int
	TotalCapacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("allocation capacity exceeded: %d lineups unassigned (total capacity %d)", e.Unassigned, e.TotalCapacity)
}

// Assignment binds a contiguous run of lineups to one contest.
type Assignment struct {
	ContestID uint
	LineupIDs []uint
}

// Result is the full allocation outcome for one slate.
type Result struct {
	Assignments []Assignment
	Unassigned  []uint
}

// Allocate distributes generated lineups across the slate's contests:
// contests are ordered by descending entry capacity and filled with
// contiguous runs of lineups in generated order until lineups or capacity
// run out. A CapacityExceededError is returned alongside the result when
// lineups are left over.
func Allocate(lineups []models.Lineup, contests []models.Contest) (Result, error) {
	ordered := make([]models.Contest, len(contests))
	copy(ordered, contests)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].MaxEntries != ordered[j].MaxEntries {
			return ordered[i].MaxEntries > ordered[j].MaxEntries
		}
		return ordered[i].ID < ordered[j].ID
	})

	result := Result{}
	next := 0
	for _, contest := range ordered {
		if next >= len(lineups) {
			break
		}
		take := contest.MaxEntries
		if take > len(lineups)-next {
			take = len(lineups) - next
		}
		if take <= 0 {
			continue
		}
		ids := make([]uint, take)
		for i := 0; i < take; i++ {
			ids[i] = lineups[next+i].ID
		}
		result.Assignments = append(result.Assignments, Assignment{
			ContestID: contest.ID,
			LineupIDs: ids,
		})
		next += take
	}

	for ; next < len(lineups); next++ {
		result.Unassigned = append(result.Unassigned, lineups[next].ID)
	}

	if len(result.Unassigned) > 0 {
		total := 0
		for _, c := range contests {
			total += c.MaxEntries
		}
		logrus.WithFields(logrus.Fields{
			"unassigned": len(result.Unassigned),
			"capacity":   total,
		}).Warn("Generated lineups exceed contest capacity")
		return result, &CapacityExceededError{
			Unassigned:    len(result.Unassigned),
			TotalCapacity: total,
		}
	}

	return result, nil
}
