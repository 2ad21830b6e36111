package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Janitor runs the cache's expired-entry sweep on a cron schedule, so
// expiry does not depend on entries being read.
type Janitor struct {
	cache *Cache
	cron  *cron.Cron

	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewJanitor creates a janitor for the cache. The schedule comes from the
// cache configuration.
func NewJanitor(c *Cache) *Janitor {
	return &Janitor{
		cache:  c,
		cron:   cron.New(),
		logger: slog.Default().With("component", "cache.janitor"),
	}
}

// Start begins the scheduled sweep. An empty schedule disables the
// janitor without error.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return fmt.Errorf("cache janitor already running")
	}

	schedule := j.cache.config.Cache.JanitorSchedule
	if schedule == "" {
		j.logger.Info("janitor schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	_, err := j.cron.AddFunc(schedule, func() {
		removed := j.cache.CleanupExpired()
		if removed > 0 {
			j.logger.Info("janitor sweep complete", "removed", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule janitor: %w", err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("cache janitor started", "schedule", schedule)
	return nil
}

// Stop halts the schedule. In-flight sweeps finish before Stop returns.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.running = false
	j.logger.Info("cache janitor stopped")
}
