package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/lifecycle"
	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/swap"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

type LineupHandler struct {
	db      *database.DB
	tracker *lifecycle.Tracker
	swapper *swap.Engine
	logger  *logrus.Logger
}

func NewLineupHandler(db *database.DB, tracker *lifecycle.Tracker, swapper *swap.Engine, logger *logrus.Logger) *LineupHandler {
	return &LineupHandler{
		db:      db,
		tracker: tracker,
		swapper: swapper,
		logger:  logger,
	}
}

// ListLineups returns the lineups of a slate, optionally filtered by status.
func (h *LineupHandler) ListLineups(c *gin.Context) {
	slateID, err := strconv.ParseUint(c.Query("slate_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slate_id parameter"})
		return
	}

	var statuses []models.LineupStatus
	if s := c.Query("status"); s != "" {
		statuses = append(statuses, models.LineupStatus(s))
	}

	lineups, err := h.tracker.List(uint(slateID), statuses...)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch lineups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lineups": lineups,
		"total":   len(lineups),
	})
}

func (h *LineupHandler) GetLineup(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lineup ID"})
		return
	}

	lineup, err := h.tracker.Get(uint(id))
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lineup not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch lineup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, lineup)
}

// DeleteLineup removes a lineup that has not yet been assigned.
func (h *LineupHandler) DeleteLineup(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lineup ID"})
		return
	}

	if err := h.tracker.Delete(uint(id)); err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lineup not found"})
			return
		}
		if errors.Is(err, lifecycle.ErrNotDeletable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Failed to delete lineup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lineup deleted successfully"})
}

type manualSwapRequest struct {
	SlotIndex   int    `json:"slot_index"`
	NewPlayerID string `json:"new_player_id" binding:"required"`
}

// SwapPlayer performs an operator-initiated swap of one slot.
func (h *LineupHandler) SwapPlayer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lineup ID"})
		return
	}

	var req manualSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lineup, err := h.tracker.Get(uint(id))
	if err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lineup not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch lineup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	slot := lineup.SlotByIndex(req.SlotIndex)
	if slot == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot_index"})
		return
	}

	var slate models.Slate
	if err := h.db.First(&slate, lineup.SlateID).Error; err != nil {
		h.logger.WithError(err).Error("Failed to fetch slate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var replacement models.Player
	err = h.db.Where("id = ? AND slate_id = ?", req.NewPlayerID, lineup.SlateID).
		First(&replacement).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Replacement player not found in slate pool"})
		return
	}

	cand := swap.Candidate{
		LineupID:           lineup.ID,
		SlotIndex:          req.SlotIndex,
		SlotName:           slot.SlotName,
		PlayerID:           slot.PlayerID,
		PlayerName:         slot.PlayerName,
		Reason:             models.SwapReasonManual,
		OriginalProjection: slot.ProjectedPoints,
	}

	if err := h.swapper.Execute(cand, &replacement, &slate); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.tracker.Get(lineup.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload lineup after swap")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// GetSwapLog returns the swap history of a lineup, newest first.
func (h *LineupHandler) GetSwapLog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lineup ID"})
		return
	}

	var entries []models.SwapLogEntry
	err = h.db.Where("lineup_id = ?", uint(id)).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch swap log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}
