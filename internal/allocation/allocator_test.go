package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

func makeLineups(n int) []models.Lineup {
	lineups := make([]models.Lineup, n)
	for i := range lineups {
		lineups[i] = models.Lineup{ID: uint(i + 1), Status: models.StatusGenerated}
	}
	return lineups
}

func contest(id uint, maxEntries int) models.Contest {
	return models.Contest{ID: id, MaxEntries: maxEntries, LockTime: time.Now().Add(time.Hour)}
}

func TestAllocateLargestContestFirst(t *testing.T) {
	lineups := makeLineups(150)
	contests := []models.Contest{
		contest(1, 50),
		contest(2, 100),
	}

	result, err := Allocate(lineups, contests)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)

	// Contest 2 has the larger capacity, so it takes the first 100 lineups.
	assert.Equal(t, uint(2), result.Assignments[0].ContestID)
	assert.Len(t, result.Assignments[0].LineupIDs, 100)
	assert.Equal(t, uint(1), result.Assignments[0].LineupIDs[0])
	assert.Equal(t, uint(100), result.Assignments[0].LineupIDs[99])

	assert.Equal(t, uint(1), result.Assignments[1].ContestID)
	assert.Len(t, result.Assignments[1].LineupIDs, 50)
	assert.Equal(t, uint(101), result.Assignments[1].LineupIDs[0])

	assert.Empty(t, result.Unassigned)
}

func TestAllocateContiguousRuns(t *testing.T) {
	lineups := makeLineups(10)
	contests := []models.Contest{
		contest(1, 4),
		contest(2, 4),
		contest(3, 4),
	}

	result, err := Allocate(lineups, contests)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 3)

	next := uint(1)
	for _, a := range result.Assignments {
		for _, id := range a.LineupIDs {
			assert.Equal(t, next, id, "lineups must stay in generated order")
			next++
		}
	}
}

func TestAllocateCapacityExceeded(t *testing.T) {
	lineups := makeLineups(20)
	contests := []models.Contest{
		contest(1, 5),
		contest(2, 10),
	}

	result, err := Allocate(lineups, contests)

	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 5, capErr.Unassigned)
	assert.Equal(t, 15, capErr.TotalCapacity)

	// The overflow lineups are reported, not dropped.
	assert.Len(t, result.Unassigned, 5)
	assert.Equal(t, uint(16), result.Unassigned[0])
	require.Len(t, result.Assignments, 2)
}

func TestAllocateTiesBrokenByContestID(t *testing.T) {
	lineups := makeLineups(4)
	contests := []models.Contest{
		contest(9, 2),
		contest(3, 2),
	}

	result, err := Allocate(lineups, contests)
	require.NoError(t, err)
	assert.Equal(t, uint(3), result.Assignments[0].ContestID)
	assert.Equal(t, uint(9), result.Assignments[1].ContestID)
}

func TestAllocateNoLineups(t *testing.T) {
	result, err := Allocate(nil, []models.Contest{contest(1, 10)})
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
	assert.Empty(t, result.Unassigned)
}
