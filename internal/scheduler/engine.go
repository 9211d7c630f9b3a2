package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/hubblepad/internal/concurrency"
	"github.com/harunnryd/hubblepad/internal/config"
	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
	"github.com/harunnryd/hubblepad/internal/hook"
	"github.com/harunnryd/hubblepad/internal/store"
)

const inFlightPollInterval = 100 * time.Millisecond

type Component interface {
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

// HookRunner executes one registry entry end to end.
type HookRunner interface {
	RunDefinition(ctx context.Context, index int, def store.HookDefinition) hook.RunReport
}

// Scheduler keeps one timer per scheduled hook and rebuilds the whole set
// whenever the schedule-relevant part of the registry changes.
type Scheduler struct {
	registry *store.HookRegistry
	runner   HookRunner
	timers   *TimerRegistry
	watcher  *Watcher

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	running       bool
	inFlightTasks uint
	fingerprint   string

	reloadMu sync.Mutex

	pollInterval    time.Duration
	shutdownTimeout time.Duration
}

func NewScheduler(registry *store.HookRegistry, runner HookRunner, cfg config.SchedulerConfig) (*Scheduler, error) {
	pollInterval, err := config.DurationOrDefault(cfg.PollInterval, config.DefaultSchedulerPollInterval)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler poll interval: %w", err)
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("scheduler poll interval must be positive")
	}

	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultSchedulerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler shutdown timeout: %w", err)
	}

	return &Scheduler{
		registry:        registry,
		runner:          runner,
		timers:          NewTimerRegistry(),
		watcher:         NewWatcher(registry.Path(), pollInterval),
		pollInterval:    pollInterval,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

func (s *Scheduler) Init(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.registry.LoadAll(); err != nil {
		return fmt.Errorf("load hook registry: %w", err)
	}

	slog.Info("Scheduler initialized", "registry", s.registry.Path(), "poll_interval", s.pollInterval)
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.ctx == nil {
		s.mu.Unlock()
		return hubbleErrors.Internal("scheduler not initialized")
	}
	s.running = true
	s.mu.Unlock()

	if _, err := s.Reload(); err != nil {
		slog.Error("Initial schedule load failed", "error", err)
	}

	if err := s.watcher.Start(s.ctx); err != nil {
		return fmt.Errorf("start registry watcher: %w", err)
	}

	go s.run()

	slog.Info("Scheduler started", "armed", len(s.timers.Armed()))
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.timers.DisarmAll()
	if err := s.watcher.Close(); err != nil {
		slog.Warn("Failed to close registry watcher", "error", err)
	}

	// In-flight hooks finish before their context is cancelled so their
	// status still gets recorded.
	defer s.cancel()

	done := make(chan struct{})
	go func() {
		s.waitForInFlightTasks(ctx)
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-time.After(s.shutdownTimeout):
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return hubbleErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if s.ctx == nil {
		return hubbleErrors.Internal("scheduler not initialized")
	}

	if !s.IsRunning() {
		return hubbleErrors.Internal("scheduler not running")
	}

	if _, err := s.registry.LoadAll(); err != nil {
		return fmt.Errorf("load hook registry: %w", hubbleErrors.ErrTransient)
	}

	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Armed lists the timer keys currently scheduled.
func (s *Scheduler) Armed() []string {
	return s.timers.Armed()
}

// Reload re-reads the registry and, when the schedule-relevant projection
// changed, disarms every timer and arms the enabled hooks again. It reports
// whether the timers were rebuilt.
func (s *Scheduler) Reload() (bool, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	hooks, err := s.registry.LoadAll()
	if err != nil {
		return false, err
	}

	fp, err := fingerprint(hooks)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	unchanged := fp == s.fingerprint
	s.fingerprint = fp
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	s.timers.DisarmAll()
	for i, def := range hooks {
		if !def.Enabled || def.Schedule == "" {
			continue
		}
		sched, ok := ResolveSchedule(def.Schedule)
		if !ok {
			slog.Warn("Unsupported hook schedule", "hook", def.Identity(i), "schedule", def.Schedule)
			continue
		}

		key := timerKey(i, def)
		s.timers.Arm(key, sched, s.fire(key, i, def))
		slog.Debug("Hook scheduled", "key", key, "schedule", sched.String())
	}

	slog.Info("Hook schedule rebuilt", "hooks", len(hooks), "armed", len(s.timers.Armed()))
	return true, nil
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.watcher.Changes():
			if _, err := s.Reload(); err != nil {
				slog.Error("Failed to reload hook schedule", "error", err)
			}
		case <-s.ctx.Done():
			slog.Info("Scheduler run loop stopped")
			return
		}
	}
}

// fire returns the timer callback for one hook. Runs are fire-and-forget:
// a run that outlasts its interval may overlap the next one.
func (s *Scheduler) fire(key string, index int, def store.HookDefinition) func() {
	return func() {
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		s.inFlightTasks++
		s.mu.Unlock()

		concurrency.SafeGo("scheduler:"+key, func() {
			defer func() {
				s.mu.Lock()
				s.inFlightTasks--
				s.mu.Unlock()
			}()

			report := s.runner.RunDefinition(s.ctx, index, def)
			if !report.OK {
				slog.Warn("Scheduled hook failed", "key", key, "run_id", report.RunID, "error", report.Error)
				return
			}
			slog.Info("Scheduled hook finished", "key", key, "run_id", report.RunID, "added", report.Added, "updated", report.Updated)
		}, nil)
	}
}

func (s *Scheduler) waitForInFlightTasks(ctx context.Context) {
	ticker := time.NewTicker(inFlightPollInterval)
	defer ticker.Stop()

	for {
		s.mu.RLock()
		count := s.inFlightTasks
		s.mu.RUnlock()
		if count == 0 {
			return
		}

		select {
		case <-ticker.C:
			slog.Info("Waiting for in-flight hooks", "count", count)
		case <-ctx.Done():
			return
		}
	}
}

func timerKey(index int, def store.HookDefinition) string {
	return fmt.Sprintf("%s#%d", def.Name, index)
}

type scheduleProjection struct {
	Name     string `json:"name"`
	Cmd      string `json:"cmd"`
	Cwd      string `json:"cwd"`
	Enabled  bool   `json:"enabled"`
	Type     string `json:"type"`
	Schedule string `json:"schedule"`
}

// fingerprint ignores lastRunAt and lastError so status bookkeeping after
// each run does not reset every timer.
func fingerprint(hooks []store.HookDefinition) (string, error) {
	proj := make([]scheduleProjection, len(hooks))
	for i, h := range hooks {
		proj[i] = scheduleProjection{
			Name:     h.Name,
			Cmd:      h.Cmd,
			Cwd:      h.Cwd,
			Enabled:  h.Enabled,
			Type:     h.Type,
			Schedule: h.Schedule,
		}
	}
	b, err := json.Marshal(proj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
