package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/daemon"
	"github.com/harunnryd/hubblepad/internal/store"
)

// StoreComponent opens the item store and hook registry, seeding empty
// documents on first run.
type StoreComponent struct {
	dataCfg     *config.DataConfig
	storeCfg    *config.StoreConfig
	items       *store.ItemStore
	registry    *store.HookRegistry
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewStoreComponent(dataCfg *config.DataConfig, storeCfg *config.StoreConfig) *StoreComponent {
	return &StoreComponent{
		dataCfg:  dataCfg,
		storeCfg: storeCfg,
	}
}

func (s *StoreComponent) Name() string {
	return "Store"
}

func (s *StoreComponent) Dependencies() []string {
	return []string{}
}

func (s *StoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("Store init cancelled: %w", ctx.Err())
	default:
	}

	storeCfg := config.StoreConfig{}
	if s.storeCfg != nil {
		storeCfg = *s.storeCfg
	}
	lockCfg, err := store.FileLockConfigFrom(storeCfg)
	if err != nil {
		return err
	}

	itemsPath := s.dataCfg.ItemsPath()
	hooksPath := s.dataCfg.HooksPath()
	for _, path := range []string{itemsPath, hooksPath} {
		created, err := store.EnsureDocument(path)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", path, err)
		}
		if created {
			slog.Info("Seeded empty document", "component", s.Name(), "path", path)
		}
	}

	s.items = store.NewItemStore(itemsPath, lockCfg)
	s.registry = store.NewHookRegistry(hooksPath, lockCfg)

	s.initialized = true
	slog.Info("Store initialized", "component", s.Name(), "items", itemsPath, "hooks", hooksPath)
	return nil
}

func (s *StoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("Store not initialized")
	}

	s.started = true
	return nil
}

func (s *StoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	return nil
}

func (s *StoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if _, err := s.items.LoadAll(); err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("item store unreadable: %w", err),
		}, nil
	}

	if _, err := s.registry.LoadAll(); err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("hook registry unreadable: %w", err),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
	}, nil
}

func (s *StoreComponent) Items() *store.ItemStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

func (s *StoreComponent) Registry() *store.HookRegistry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}
