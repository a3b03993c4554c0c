package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
	"gorm.io/gorm/clause"

	"github.com/jstittsworth/lineup-manager/internal/allocation"
	"github.com/jstittsworth/lineup-manager/internal/lifecycle"
	"github.com/jstittsworth/lineup-manager/internal/models"
	"github.com/jstittsworth/lineup-manager/internal/optimizer"
	"github.com/jstittsworth/lineup-manager/internal/providers"
	"github.com/jstittsworth/lineup-manager/internal/strategy"
	"github.com/jstittsworth/lineup-manager/internal/swap"
	"github.com/jstittsworth/lineup-manager/internal/timing"
	"github.com/jstittsworth/lineup-manager/pkg/config"
	"github.com/jstittsworth/lineup-manager/pkg/database"
)

// Scheduler drives the polling loops: contest sync, tiered projection
// refresh, swap passes and submission decisions. All external I/O goes
// through the provider interfaces; every mutation of one contest's lineups
// happens under that contest's lock.
type Scheduler struct {
	db       *database.DB
	cfg      *config.Config
	cache    *CacheService
	hub      *EventHub
	tracker  *lifecycle.Tracker
	swapper  *swap.Engine
	policy   timing.Policy
	pools    providers.PlayerPoolProvider
	projs    providers.ProjectionProvider
	contests providers.ContestInfoProvider
	gateway  providers.SubmissionGateway
	limiter  *rate.Limiter
	logger   *logrus.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool

	contestLocks sync.Map // contest id -> *sync.Mutex
}

// SchedulerDeps bundles the collaborators the scheduler needs.
type SchedulerDeps struct {
	DB       *database.DB
	Config   *config.Config
	Cache    *CacheService
	Hub      *EventHub
	Tracker  *lifecycle.Tracker
	Swapper  *swap.Engine
	Policy   timing.Policy
	Pools    providers.PlayerPoolProvider
	Projs    providers.ProjectionProvider
	Contests providers.ContestInfoProvider
	Gateway  providers.SubmissionGateway
	Logger   *logrus.Logger
}

func NewScheduler(deps SchedulerDeps) *Scheduler {
	return &Scheduler{
		db:       deps.DB,
		cfg:      deps.Config,
		cache:    deps.Cache,
		hub:      deps.Hub,
		tracker:  deps.Tracker,
		swapper:  deps.Swapper,
		policy:   deps.Policy,
		pools:    deps.Pools,
		projs:    deps.Projs,
		contests: deps.Contests,
		gateway:  deps.Gateway,
		limiter:  rate.NewLimiter(rate.Limit(deps.Config.ProviderRateLimit), deps.Config.ProviderRateLimit),
		logger:   deps.Logger,
		cron:     cron.New(),
	}
}

// Start schedules the polling loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.cfg.PollInterval)
	if _, err := s.cron.AddFunc(schedule, s.Tick); err != nil {
		return fmt.Errorf("failed to schedule polling loop: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("interval", s.cfg.PollInterval).Info("Scheduler started")
	return nil
}

// Stop halts the polling loop, waiting for in-flight jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) lockContest(id uint) *sync.Mutex {
	m, _ := s.contestLocks.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// Tick runs one full pass over every open contest. Contests are independent
// and processed concurrently; work inside one contest is serialized by its
// lock.
func (s *Scheduler) Tick() {
	ctx := context.Background()
	now := time.Now().UTC()

	var open []models.Contest
	err := s.db.Preload("Slate").
		Where("lock_time > ?", now).
		Find(&open).Error
	if err != nil {
		s.logger.WithError(err).Error("Failed to load open contests")
		return
	}
	if len(open) == 0 {
		return
	}

	workers := pool.New().WithMaxGoroutines(4)
	for i := range open {
		contest := open[i]
		workers.Go(func() {
			s.processContest(ctx, contest.ID)
		})
	}
	workers.Wait()
}

// processContest holds the contest lock across the whole
// refresh -> detect -> replace -> persist and read -> decide -> mutate
// cycles.
func (s *Scheduler) processContest(ctx context.Context, contestID uint) {
	lock := s.lockContest(contestID)
	lock.Lock()
	defer lock.Unlock()

	var contest models.Contest
	if err := s.db.Preload("Slate").First(&contest, contestID).Error; err != nil {
		s.logger.WithError(err).WithField("contest_id", contestID).Error("Failed to load contest")
		return
	}

	log := s.logger.WithField("contest_id", contest.ID)

	// External unavailability defers decisions, it never fails the pass.
	if err := s.syncContestInfo(ctx, &contest); err != nil {
		log.WithError(err).Warn("Contest sync failed, deferring to next tick")
		return
	}

	now := time.Now().UTC()
	if s.policy.ShouldRefresh(&contest, now) {
		if err := s.refreshProjections(ctx, &contest); err != nil {
			log.WithError(err).Warn("Projection refresh failed, deferring")
		}
	}

	s.runSwapPass(ctx, &contest)
	s.runSubmissionPass(ctx, &contest)
}

func (s *Scheduler) syncContestInfo(ctx context.Context, contest *models.Contest) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	info, err := s.contests.GetContest(ctx, contest.ExternalID)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"fill_count":     info.FillCount,
		"total_capacity": info.TotalCapacity,
		"max_entries":    info.MaxEntries,
		"lock_time":      info.LockTime,
	}
	if err := s.db.Model(contest).Updates(updates).Error; err != nil {
		return err
	}
	contest.FillCount = info.FillCount
	contest.TotalCapacity = info.TotalCapacity
	contest.MaxEntries = info.MaxEntries
	contest.LockTime = info.LockTime

	if err := s.cache.Set(ctx, ContestInfoCacheKey(contest.ID), info, 5*time.Minute); err != nil {
		s.logger.WithError(err).Debug("Failed to cache contest info")
	}
	return nil
}

// refreshProjections replaces the slate's players wholesale with a fresh
// pool and stamps the contest's refresh timestamp.
func (s *Scheduler) refreshProjections(ctx context.Context, contest *models.Contest) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	players, err := s.pools.GetPlayers(ctx, contest.Slate.ExternalID)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, PoolCacheKey(contest.SlateID), players, time.Hour); err != nil {
		s.logger.WithError(err).Debug("Failed to cache pool snapshot")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	players, err = s.projs.GetProjections(ctx, contest.Slate.Sport, players)
	if err != nil {
		return err
	}

	for i := range players {
		players[i].SlateID = contest.SlateID
	}
	if len(players) > 0 {
		// Overwrite by id: pool refreshes replace players wholesale.
		err = s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&players).Error
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if err := s.db.Model(contest).Update("last_projection_refresh", now).Error; err != nil {
		return err
	}
	contest.LastProjectionRefresh = now

	if err := s.cache.Set(ctx, ProjectionsCacheKey(contest.SlateID), players, time.Hour); err != nil {
		s.logger.WithError(err).Debug("Failed to cache projection snapshot")
	}

	event := NewEvent(EventProjectionsFresh)
	event.ContestID = contest.ID
	s.hub.Publish(event)
	return nil
}

func (s *Scheduler) runSwapPass(ctx context.Context, contest *models.Contest) {
	now := time.Now().UTC()
	// Late swaps stop with edits.
	if contest.TimeToLock(now) <= s.policy.StopEditing {
		return
	}

	lineups, err := s.tracker.ListByContest(contest.ID, swap.LiveStatuses()...)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load live lineups for swap pass")
		return
	}
	if len(lineups) == 0 {
		return
	}

	var poolPlayers []models.Player
	if err := s.db.Where("slate_id = ?", contest.SlateID).Find(&poolPlayers).Error; err != nil {
		s.logger.WithError(err).Error("Failed to load player pool for swap pass")
		return
	}

	snap := swap.MakeSnapshot(poolPlayers)
	results := s.swapper.ProcessLineups(lineups, &contest.Slate, snap)

	for _, res := range results {
		if res.Err == nil {
			s.reuploadLineup(ctx, contest, res.LineupID)
			continue
		}
		var noRepl *swap.NoEligibleReplacementError
		if errors.As(res.Err, &noRepl) {
			event := NewEvent(EventSwapNoCandidate)
			event.LineupID = res.LineupID
			event.ContestID = contest.ID
			event.OldPlayer = res.OldPlayerID
			event.Reason = string(res.Reason)
			s.hub.Publish(event)
		}
	}
}

// reuploadLineup pushes a swapped lineup back to the platform and marks it
// edited on success.
func (s *Scheduler) reuploadLineup(ctx context.Context, contest *models.Contest, lineupID uint) {
	lineup, err := s.tracker.Get(lineupID)
	if err != nil || lineup.ExternalEntryID == "" {
		return
	}

	// Re-check lock before the edit call; a stale decision is a no-op.
	var fresh models.Contest
	if err := s.db.First(&fresh, contest.ID).Error; err != nil || fresh.Locked(time.Now().UTC()) {
		return
	}

	result, err := s.gateway.Edit(ctx, lineup, lineup.ExternalEntryID)
	if err != nil || !result.Success {
		s.logger.WithField("lineup_id", lineupID).Warn("Lineup edit failed, will retry next tick")
		return
	}
	if err := s.tracker.UpdateStatus(lineupID, models.StatusEdited); err != nil {
		s.logger.WithError(err).WithField("lineup_id", lineupID).Error("Failed to mark lineup edited")
	}
}

func (s *Scheduler) runSubmissionPass(ctx context.Context, contest *models.Contest) {
	now := time.Now().UTC()
	decision := timing.Evaluate(contest, now, s.policy)

	if decision.State != contest.SubmitState {
		if err := s.db.Model(contest).Update("submit_state", decision.State).Error; err != nil {
			s.logger.WithError(err).Error("Failed to persist submit state")
			return
		}
		contest.SubmitState = decision.State
		switch decision.State {
		case models.SubmitReady:
			event := NewEvent(EventContestReady)
			event.ContestID = contest.ID
			event.Reason = decision.Reason
			s.hub.Publish(event)
		case models.SubmitLocked:
			event := NewEvent(EventContestLocked)
			event.ContestID = contest.ID
			s.hub.Publish(event)
		}
	}

	if !decision.ShouldSubmit {
		return
	}

	lineups, err := s.tracker.ListByContest(contest.ID, models.StatusAssigned)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load assigned lineups")
		return
	}

	submitted := 0
	for i := range lineups {
		// Re-check contest state: a decision computed before a lock
		// transition must become a no-op.
		var fresh models.Contest
		if err := s.db.First(&fresh, contest.ID).Error; err != nil {
			return
		}
		if fresh.Locked(time.Now().UTC()) {
			s.logger.WithField("contest_id", contest.ID).Info("Contest locked mid-pass, stopping submissions")
			return
		}

		result, err := s.gateway.Submit(ctx, &lineups[i])
		if err != nil || !result.Success {
			if uerr := s.tracker.UpdateStatus(lineups[i].ID, models.StatusFailed); uerr != nil {
				s.logger.WithError(uerr).Error("Failed to mark lineup failed")
			}
			event := NewEvent(EventLineupFailed)
			event.LineupID = lineups[i].ID
			event.ContestID = contest.ID
			if err != nil {
				event.Reason = err.Error()
			}
			s.hub.Publish(event)
			continue
		}

		if err := s.tracker.MarkSubmitted(lineups[i].ID, result.ExternalEntryID); err != nil {
			s.logger.WithError(err).Error("Failed to mark lineup submitted")
			continue
		}
		submitted++
		event := NewEvent(EventLineupSubmitted)
		event.LineupID = lineups[i].ID
		event.ContestID = contest.ID
		s.hub.Publish(event)
	}

	if submitted > 0 && submitted == len(lineups) {
		if err := s.db.Model(contest).Update("submit_state", models.SubmitDone).Error; err != nil {
			s.logger.WithError(err).Error("Failed to persist submitted state")
			return
		}
		contest.SubmitState = models.SubmitDone
	}
}

// GenerateForSlate builds the configured strategy, optimizes the slate's
// pool and persists the resulting lineups, then allocates them across the
// slate's contests by descending capacity. Leftover lineups stay generated;
// capacity overflow is reported, not fatal.
func (s *Scheduler) GenerateForSlate(ctx context.Context, slateID uint, count int, seed int64) ([]uint, error) {
	var slate models.Slate
	if err := s.db.Preload("Contests").First(&slate, slateID).Error; err != nil {
		return nil, fmt.Errorf("failed to load slate: %w", err)
	}

	var players []models.Player
	if err := s.db.Where("slate_id = ?", slateID).Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load player pool: %w", err)
	}

	strat := strategy.ForSport(slate.Sport, s.cfg)
	cons := strat.Constraints(players, slate.SalaryCap, seed)

	optCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.OptimizationTimeout)*time.Second)
	defer cancel()

	var lineups []models.Lineup
	var err error
	if slate.SingleGame {
		lineups, err = optimizer.OptimizeSingleGame(optCtx, players, cons, count)
	} else {
		lineups, err = optimizer.Optimize(optCtx, players, slate.SlotPlan(), cons, count)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(lineups))
	saved := make([]models.Lineup, 0, len(lineups))
	for i := range lineups {
		lineups[i].SlateID = slateID
		id, _, err := s.tracker.Save(&lineups[i])
		if err != nil {
			return nil, err
		}
		lineups[i].ID = id
		ids = append(ids, id)
		saved = append(saved, lineups[i])
	}

	result, allocErr := allocation.Allocate(saved, slate.Contests)
	for _, assignment := range result.Assignments {
		for _, lineupID := range assignment.LineupIDs {
			if err := s.tracker.AssignToContest(lineupID, assignment.ContestID); err != nil {
				s.logger.WithError(err).WithField("lineup_id", lineupID).Error("Failed to assign lineup")
			}
		}
	}

	var capErr *allocation.CapacityExceededError
	if errors.As(allocErr, &capErr) {
		s.logger.WithFields(logrus.Fields{
			"slate_id":   slateID,
			"unassigned": capErr.Unassigned,
		}).Warn("Lineups beyond contest capacity remain generated")
	}

	return ids, nil
}
