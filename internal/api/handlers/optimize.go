package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/optimizer"
	"github.com/jstittsworth/lineup-manager/internal/services"
	"github.com/jstittsworth/lineup-manager/pkg/config"
)

type OptimizeHandler struct {
	scheduler *services.Scheduler
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewOptimizeHandler(scheduler *services.Scheduler, cfg *config.Config, logger *logrus.Logger) *OptimizeHandler {
	return &OptimizeHandler{
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
	}
}

type optimizeRequest struct {
	SlateID uint  `json:"slate_id" binding:"required"`
	Count   int   `json:"count"`
	Seed    int64 `json:"seed"`
}

// Optimize generates lineups for a slate and allocates them across its
// contests.
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > h.cfg.MaxLineups {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "count exceeds maximum lineups per request",
			"max":   h.cfg.MaxLineups,
		})
		return
	}

	ids, err := h.scheduler.GenerateForSlate(c.Request.Context(), req.SlateID, req.Count, req.Seed)
	if err != nil {
		var poolErr *optimizer.InsufficientPlayerPoolError
		var infeasible *optimizer.InfeasibleError
		var timeoutErr *optimizer.TimeoutError
		switch {
		case errors.As(err, &poolErr), errors.As(err, &infeasible):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.As(err, &timeoutErr):
			c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		default:
			h.logger.WithError(err).Error("Optimization failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lineup_ids": ids,
		"count":      len(ids),
	})
}
