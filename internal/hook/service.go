package hook

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	hubbleErrors "github.com/harunnryd/hubblepad/internal/errors"
	"github.com/harunnryd/hubblepad/internal/logger"
	"github.com/harunnryd/hubblepad/internal/store"
)

// RunReport describes one hook invocation.
type RunReport struct {
	Index    int           `json:"index"`
	Name     string        `json:"name,omitempty"`
	RunID    string        `json:"runId,omitempty"`
	OK       bool          `json:"ok"`
	Merged   bool          `json:"merged"`
	Added    int           `json:"added"`
	Updated  int           `json:"updated"`
	Count    int           `json:"count"`
	Error    string        `json:"error,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"-"`
}

// BatchReport aggregates a run over every enabled hook.
type BatchReport struct {
	OK      bool        `json:"ok"`
	Added   int         `json:"added"`
	Updated int         `json:"updated"`
	Results []RunReport `json:"results"`
}

// Service runs registered hooks, merges their output and records status.
type Service struct {
	registry *store.HookRegistry
	merger   *Merger
	executor Executor
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(registry *store.HookRegistry, items *store.ItemStore, executor Executor, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		merger:   NewMerger(items),
		executor: executor,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOne resolves ref against the registry and runs that hook. Unknown and
// disabled hooks are rejected before anything executes. A failing hook is
// reported through RunReport, not the returned error.
func (s *Service) RunOne(ctx context.Context, ref string) (RunReport, error) {
	index, def, err := s.registry.Lookup(ref)
	if err != nil {
		return RunReport{}, err
	}
	if !def.Enabled {
		return RunReport{}, hubbleErrors.Disabled(fmt.Sprintf("hook %q is disabled", def.Identity(index)))
	}
	return s.RunDefinition(ctx, index, def), nil
}

// RunDefinition executes def, merges its items for update hooks and
// records the outcome on the registry entry. Cancelling ctx does not stop
// the run: only the hook timeout does, and the outcome is always recorded.
func (s *Service) RunDefinition(ctx context.Context, index int, def store.HookDefinition) RunReport {
	ctx = context.WithoutCancel(ctx)
	res := s.executor.Run(ctx, def)
	ctx = logger.WithRunID(ctx, res.RunID)
	report := s.apply(ctx, index, def, res)
	s.recordStatus(ctx, index, def, report.Error)
	return report
}

// RunAll executes every enabled hook concurrently. Merges and status writes
// happen afterwards in registry order, so a later hook wins when two hooks
// emit the same id. Like RunDefinition, it runs to completion even when ctx
// is cancelled.
func (s *Service) RunAll(ctx context.Context) (BatchReport, error) {
	ctx = context.WithoutCancel(ctx)
	hooks, err := s.registry.LoadAll()
	if err != nil {
		return BatchReport{}, err
	}

	var selected []int
	for i, def := range hooks {
		if def.Enabled {
			selected = append(selected, i)
		}
	}

	results := make([]Result, len(selected))
	var g errgroup.Group
	for slot, index := range selected {
		g.Go(func() error {
			results[slot] = s.executor.Run(ctx, hooks[index])
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchReport{OK: true, Results: make([]RunReport, 0, len(selected))}
	for slot, index := range selected {
		def := hooks[index]
		runCtx := logger.WithRunID(ctx, results[slot].RunID)
		report := s.apply(runCtx, index, def, results[slot])
		s.recordStatus(runCtx, index, def, report.Error)

		batch.Added += report.Added
		batch.Updated += report.Updated
		if !report.OK {
			batch.OK = false
		}
		batch.Results = append(batch.Results, report)
	}

	logger.From(ctx).Info("Ran all hooks", "hooks", len(selected), "added", batch.Added, "updated", batch.Updated, "ok", batch.OK)
	return batch, nil
}

func (s *Service) apply(ctx context.Context, index int, def store.HookDefinition, res Result) RunReport {
	report := RunReport{
		Index:    index,
		Name:     def.Name,
		RunID:    res.RunID,
		OK:       res.OK,
		Count:    len(res.Items),
		Duration: res.Duration,
	}
	if !res.OK {
		report.Error = res.Error
		report.Stderr = res.Stderr
		report.Count = 0
		return report
	}
	if !def.IsUpdate() {
		return report
	}

	merged, err := s.merger.Merge(ctx, def.Identity(index), res.Items, s.now())
	if err != nil {
		logger.From(ctx).Error("Merge failed", "hook", def.Identity(index), "error", err)
		report.OK = false
		report.Error = fmt.Sprintf("Merge failed: %v", err)
		return report
	}
	report.Merged = true
	report.Added = merged.Added
	report.Updated = merged.Updated
	return report
}

func (s *Service) recordStatus(ctx context.Context, index int, def store.HookDefinition, errMsg string) {
	if err := s.registry.UpdateStatus(ctx, index, def.Name, s.now(), errMsg); err != nil {
		logger.From(ctx).Warn("Failed to record hook status", "hook", def.Identity(index), "error", err)
	}
}
