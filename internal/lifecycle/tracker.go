package lifecycle

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

// ErrNotFound is returned when a lineup id does not exist.
var ErrNotFound = errors.New("lineup not found")

// ErrNotDeletable is returned when deleting a lineup that already entered a
// contest.
var ErrNotDeletable = errors.New("only generated lineups may be deleted")

// InvalidTransitionError is returned on a status change the lifecycle state
// machine forbids.
type InvalidTransitionError struct {
	From models.LineupStatus
	To   models.LineupStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid lineup transition %s -> %s", e.From, e.To)
}

// Tracker owns lineup persistence: dedup-on-create, the status state machine
// and the generated-only delete rule.
type Tracker struct {
	db     *database.DB
	logger *logrus.Logger
}

func NewTracker(db *database.DB, logger *logrus.Logger) *Tracker {
	return &Tracker{db: db, logger: logger}
}

// Save persists a generated lineup for its slate. A lineup whose content
// hash already exists in the slate is not duplicated: the existing id is
// returned and created is false.
func (t *Tracker) Save(lineup *models.Lineup) (id uint, created bool, err error) {
	if lineup.LineupHash == "" {
		lineup.ComputeHash()
	}

	err = t.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Lineup
		res := tx.Where("slate_id = ? AND lineup_hash = ?", lineup.SlateID, lineup.LineupHash).
			First(&existing)
		if res.Error == nil {
			id = existing.ID
			created = false
			return nil
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return res.Error
		}

		if lineup.Status == "" {
			lineup.Status = models.StatusGenerated
		}
		if err := tx.Create(lineup).Error; err != nil {
			return err
		}
		for i := range lineup.Players {
			lineup.Players[i].LineupID = lineup.ID
		}
		id = lineup.ID
		created = true
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to save lineup: %w", err)
	}

	if !created {
		t.logger.WithFields(logrus.Fields{
			"slate_id": lineup.SlateID,
			"hash":     lineup.LineupHash,
			"existing": id,
		}).Debug("Duplicate lineup, returning existing id")
	}
	return id, created, nil
}

// Get loads a lineup with its slot entries.
func (t *Tracker) Get(id uint) (*models.Lineup, error) {
	var lineup models.Lineup
	err := t.db.Preload("Players").First(&lineup, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lineup, nil
}

// List returns a slate's lineups, optionally filtered by status.
func (t *Tracker) List(slateID uint, statuses ...models.LineupStatus) ([]models.Lineup, error) {
	q := t.db.Preload("Players").Where("slate_id = ?", slateID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var lineups []models.Lineup
	if err := q.Order("id").Find(&lineups).Error; err != nil {
		return nil, fmt.Errorf("failed to list lineups: %w", err)
	}
	return lineups, nil
}

// ListByContest returns a contest's lineups, optionally filtered by status.
func (t *Tracker) ListByContest(contestID uint, statuses ...models.LineupStatus) ([]models.Lineup, error) {
	q := t.db.Preload("Players").Where("contest_id = ?", contestID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var lineups []models.Lineup
	if err := q.Order("id").Find(&lineups).Error; err != nil {
		return nil, fmt.Errorf("failed to list lineups: %w", err)
	}
	return lineups, nil
}

// UpdateStatus applies a lifecycle transition, rejecting anything the state
// machine forbids.
func (t *Tracker) UpdateStatus(id uint, to models.LineupStatus) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		var lineup models.Lineup
		if err := tx.First(&lineup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !models.CanTransition(lineup.Status, to) {
			return &InvalidTransitionError{From: lineup.Status, To: to}
		}
		if lineup.Status == to {
			return nil
		}
		return tx.Model(&lineup).Update("status", to).Error
	})
}

// AssignToContest binds a generated lineup to a contest within its slate.
func (t *Tracker) AssignToContest(id, contestID uint) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		var lineup models.Lineup
		if err := tx.First(&lineup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !models.CanTransition(lineup.Status, models.StatusAssigned) {
			return &InvalidTransitionError{From: lineup.Status, To: models.StatusAssigned}
		}
		return tx.Model(&lineup).Updates(map[string]interface{}{
			"contest_id": contestID,
			"status":     models.StatusAssigned,
		}).Error
	})
}

// MarkSubmitted records gateway success, storing the external entry ref.
func (t *Tracker) MarkSubmitted(id uint, externalEntryID string) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		var lineup models.Lineup
		if err := tx.First(&lineup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !models.CanTransition(lineup.Status, models.StatusSubmitted) {
			return &InvalidTransitionError{From: lineup.Status, To: models.StatusSubmitted}
		}
		return tx.Model(&lineup).Updates(map[string]interface{}{
			"status":            models.StatusSubmitted,
			"external_entry_id": externalEntryID,
		}).Error
	})
}

// Delete removes a lineup. Only generated lineups may be deleted.
func (t *Tracker) Delete(id uint) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		var lineup models.Lineup
		if err := tx.First(&lineup, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if lineup.Status != models.StatusGenerated {
			return fmt.Errorf("lineup %d in status %s: %w", id, lineup.Status, ErrNotDeletable)
		}
		if err := tx.Where("lineup_id = ?", id).Delete(&models.LineupPlayer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lineup{}, id).Error
	})
}
