package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/timing"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

type ContestHandler struct {
	db     *database.DB
	policy timing.Policy
	logger *logrus.Logger
}

func NewContestHandler(db *database.DB, policy timing.Policy, logger *logrus.Logger) *ContestHandler {
	return &ContestHandler{
		db:     db,
		policy: policy,
		logger: logger,
	}
}

func (h *ContestHandler) ListSlates(c *gin.Context) {
	var slates []models.Slate
	q := h.db.Preload("Contests").Order("lock_time")
	if sport := c.Query("sport"); sport != "" {
		q = q.Where("sport = ?", sport)
	}
	if err := q.Find(&slates).Error; err != nil {
		h.logger.WithError(err).Error("Failed to fetch slates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slates": slates, "total": len(slates)})
}

func (h *ContestHandler) ListContests(c *gin.Context) {
	q := h.db.Order("lock_time")
	if s := c.Query("slate_id"); s != "" {
		slateID, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slate_id parameter"})
			return
		}
		q = q.Where("slate_id = ?", uint(slateID))
	}

	var contests []models.Contest
	if err := q.Find(&contests).Error; err != nil {
		h.logger.WithError(err).Error("Failed to fetch contests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contests": contests, "total": len(contests)})
}

// GetDecision evaluates the submission timing policy for a contest right now.
func (h *ContestHandler) GetDecision(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contest ID"})
		return
	}

	var contest models.Contest
	if err := h.db.First(&contest, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contest not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch contest")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	now := time.Now().UTC()
	decision := timing.Evaluate(&contest, now, h.policy)

	c.JSON(http.StatusOK, gin.H{
		"contest_id":    contest.ID,
		"state":         decision.State,
		"should_submit": decision.ShouldSubmit,
		"can_edit":      decision.CanEdit,
		"reason":        decision.Reason,
		"fill_rate":     contest.FillRate(),
		"time_to_lock":  contest.TimeToLock(now).String(),
	})
}
