package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/daemon"
	"github.com/harunnryd/hubblepad/internal/scheduler"
)

type SchedulerComponent struct {
	sched     *scheduler.Scheduler
	cfg       *config.SchedulerConfig
	storeComp *StoreComponent
	hooksComp *HooksComponent
}

func NewSchedulerComponent(cfg *config.SchedulerConfig, storeComp *StoreComponent, hooksComp *HooksComponent) *SchedulerComponent {
	return &SchedulerComponent{
		cfg:       cfg,
		storeComp: storeComp,
		hooksComp: hooksComp,
	}
}

func (s *SchedulerComponent) Name() string {
	return "Scheduler"
}

func (s *SchedulerComponent) Dependencies() []string {
	return []string{"Store", "Hooks"}
}

func (s *SchedulerComponent) Init(ctx context.Context) error {
	if s.storeComp == nil || s.hooksComp == nil {
		return fmt.Errorf("store and hooks components are required")
	}

	service := s.hooksComp.Service()
	if service == nil {
		return fmt.Errorf("hook service not initialized")
	}

	sched, err := scheduler.NewScheduler(s.storeComp.Registry(), service, *s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.sched = sched

	// The scheduler outlives Init; it is stopped through Stop.
	if err := s.sched.Init(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	slog.Info("Scheduler initialized", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Start(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not initialized")
	}

	if err := s.sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "component", s.Name(), "armed", s.sched.Armed())
	return nil
}

func (s *SchedulerComponent) Stop(ctx context.Context) error {
	if s.sched == nil {
		slog.Info("Scheduler not initialized, skipping stop", "component", s.Name())
		return nil
	}

	if err := s.sched.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	slog.Info("Scheduler stopped", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if s.sched == nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if err := s.sched.Health(ctx); err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
	}, nil
}

func (s *SchedulerComponent) GetScheduler() *scheduler.Scheduler {
	return s.sched
}
