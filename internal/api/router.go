package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/api/handlers"
	"github.com/jstittsworth/lineup-manager/internal/lifecycle"
	"github.com/jstittsworth/lineup-manager/internal/services"
	"github.com/jstittsworth/lineup-manager/internal/swap"
	"github.com/jstittsworth/lineup-manager/internal/timing"
	"github.com/jstittsworth/lineup-manager/pkg/config"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	DB        *database.DB
	Redis     *redis.Client
	Config    *config.Config
	Policy    timing.Policy
	Tracker   *lifecycle.Tracker
	Swapper   *swap.Engine
	Scheduler *services.Scheduler
	Hub       *services.EventHub
	Logger    *logrus.Logger
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Logger)
	lineupHandler := handlers.NewLineupHandler(deps.DB, deps.Tracker, deps.Swapper, deps.Logger)
	contestHandler := handlers.NewContestHandler(deps.DB, deps.Policy, deps.Logger)
	optimizeHandler := handlers.NewOptimizeHandler(deps.Scheduler, deps.Config, deps.Logger)
	eventsHandler := handlers.NewEventsHandler(deps.Hub, deps.Logger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/slates", contestHandler.ListSlates)
		apiV1.GET("/contests", contestHandler.ListContests)
		apiV1.GET("/contests/:id/decision", contestHandler.GetDecision)

		apiV1.POST("/optimize", optimizeHandler.Optimize)

		apiV1.GET("/lineups", lineupHandler.ListLineups)
		apiV1.GET("/lineups/:id", lineupHandler.GetLineup)
		apiV1.DELETE("/lineups/:id", lineupHandler.DeleteLineup)
		apiV1.POST("/lineups/:id/swap", lineupHandler.SwapPlayer)
		apiV1.GET("/lineups/:id/swaps", lineupHandler.GetSwapLog)
	}

	router.GET("/ws/events", eventsHandler.Subscribe)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	return router
}
