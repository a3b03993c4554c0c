package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/api"
	"github.com/jstittsworth/lineup-manager/internal/lifecycle"
	"github.com/jstittsworth/lineup-manager/internal/providers"
	"github.com/jstittsworth/lineup-manager/internal/services"
	"github.com/jstittsworth/lineup-manager/internal/swap"
	"github.com/jstittsworth/lineup-manager/internal/timing"
	"github.com/jstittsworth/lineup-manager/pkg/config"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.IsDevelopment() {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting lineup manager")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, running without snapshot cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cacheService := services.NewCacheService(redisClient)

	hub := services.NewEventHub(logger)
	switch cfg.AlertProvider {
	case "twilio":
		hub.AddNotifier(services.NewTwilioNotifier(
			cfg.TwilioAccountSID,
			cfg.TwilioAuthToken,
			cfg.TwilioFromNumber,
			cfg.AlertToNumber,
			cfg.AlertRateLimit,
			logger,
		))
	default:
		hub.AddNotifier(services.NewMockNotifier(logger))
	}
	go hub.Run()
	defer hub.Close()

	tracker := lifecycle.NewTracker(db, logger)
	swapper := swap.NewEngine(db, logger, hub, cfg.ProjectionDropThreshold)

	policy := timing.Policy{
		FillRateThreshold:  cfg.FillRateThreshold,
		SubmitWindow:       cfg.SubmitWindow(),
		StopEditing:        cfg.StopEditingWindow(),
		RefreshDefault:     time.Duration(cfg.RefreshDefaultMins) * time.Minute,
		RefreshDayOf:       time.Duration(cfg.RefreshDayOfMins) * time.Minute,
		RefreshApproaching: time.Duration(cfg.RefreshApproachingMins) * time.Minute,
		RefreshImminent:    time.Duration(cfg.RefreshImminentMins) * time.Minute,
	}

	var (
		pools    providers.PlayerPoolProvider
		projs    providers.ProjectionProvider
		contests providers.ContestInfoProvider
		gateway  providers.SubmissionGateway
	)
	if cfg.PlatformBaseURL != "" {
		client := providers.NewPlatformClient(cfg.PlatformBaseURL, cfg.PlatformAPIKey, cfg.ExternalAPITimeout, logger)
		pools, projs, contests, gateway = client, client, client, client
	} else {
		logger.Warn("No platform base URL configured, using mock gateway")
		pools, projs, contests = providers.NullProvider{}, providers.NullProvider{}, providers.NullProvider{}
		gateway = providers.NewMockGateway(logger)
	}
	breakerGateway := services.NewBreakerGateway(gateway, cfg.CircuitBreakerThreshold, cfg.ExternalAPITimeout, logger)

	scheduler := services.NewScheduler(services.SchedulerDeps{
		DB:       db,
		Config:   cfg,
		Cache:    cacheService,
		Hub:      hub,
		Tracker:  tracker,
		Swapper:  swapper,
		Policy:   policy,
		Pools:    pools,
		Projs:    projs,
		Contests: contests,
		Gateway:  breakerGateway,
		Logger:   logger,
	})
	if cfg.EnableBackgroundJobs {
		if err := scheduler.Start(); err != nil {
			logger.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := api.SetupRouter(api.Deps{
		DB:        db,
		Redis:     redisClient,
		Config:    cfg,
		Policy:    policy,
		Tracker:   tracker,
		Swapper:   swapper,
		Scheduler: scheduler,
		Hub:       hub,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Lineup manager started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down lineup manager...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Lineup manager exited")
}
