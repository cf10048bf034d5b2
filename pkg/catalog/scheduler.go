package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/predicate/pkg/config"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes idle composites from the catalog cache on a cron
// schedule. Schedules are five-field cron expressions or descriptors such
// as "@hourly" and "@every 5m".
type Scheduler struct {
	catalog  *Catalog
	schedule string
	ttl      time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID // zero while stopped
}

// NewScheduler prunes composites of c unused for cfg.CacheTTL, on
// cfg.PruneSchedule.
func NewScheduler(c *Catalog, cfg *config.CatalogConfig) *Scheduler {
	s := &Scheduler{
		catalog: c,
		logger:  c.logger.With("component", "catalog.scheduler"),
	}
	if cfg != nil {
		s.schedule, s.ttl = cfg.PruneSchedule, cfg.CacheTTL
	}
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Start schedules pruning and returns. The scheduler stops when ctx is
// done or Stop is called. An empty schedule leaves it idle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.entry != 0:
		return errors.New("scheduler already running")
	case s.schedule == "":
		s.logger.Debug("no prune schedule")
		return nil
	case s.ttl <= 0:
		return fmt.Errorf("cache ttl must be positive, got %s", s.ttl)
	}

	id, err := s.cron.AddFunc(s.schedule, s.prune)
	if err != nil {
		return fmt.Errorf("prune schedule %q: %w", s.schedule, err)
	}
	s.entry = id
	s.cron.Start()
	s.logger.Info("pruning composites", "schedule", s.schedule, "ttl", s.ttl)

	context.AfterFunc(ctx, s.Stop)
	return nil
}

func (s *Scheduler) prune() {
	n := s.catalog.Prune(s.ttl)
	s.logger.Debug("pruned composites", "count", n, "remaining", s.catalog.CacheLen())
}

// Stop unschedules pruning and waits for a prune in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return
	}
	s.cron.Remove(s.entry)
	<-s.cron.Stop().Done()
	s.entry = 0
	s.logger.Info("pruning stopped")
}

// IsRunning reports whether pruning is scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry != 0
}

// NextRun returns when the next prune happens, or nil when none is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	return &next
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
