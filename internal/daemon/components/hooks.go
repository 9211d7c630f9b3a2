package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/daemon"
	"github.com/harunnryd/hubblepad/internal/hook"
)

// HooksComponent builds the hook runner and the service shared by the
// scheduler and the HTTP API.
type HooksComponent struct {
	dataCfg   *config.DataConfig
	hooksCfg  *config.HooksConfig
	storeComp *StoreComponent
	service   *hook.Service
	mu        sync.RWMutex
}

func NewHooksComponent(dataCfg *config.DataConfig, hooksCfg *config.HooksConfig, storeComp *StoreComponent) *HooksComponent {
	return &HooksComponent{
		dataCfg:   dataCfg,
		hooksCfg:  hooksCfg,
		storeComp: storeComp,
	}
}

func (h *HooksComponent) Name() string {
	return "Hooks"
}

func (h *HooksComponent) Dependencies() []string {
	return []string{"Store"}
}

func (h *HooksComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.storeComp == nil || h.storeComp.Items() == nil {
		return fmt.Errorf("store not initialized")
	}

	timeout, err := h.hooksCfg.HookTimeout()
	if err != nil {
		return err
	}

	runner := hook.NewRunner(hook.RunnerConfig{
		Root:          h.dataCfg.Root,
		Shell:         h.hooksCfg.Shell,
		Timeout:       timeout,
		StderrExcerpt: h.hooksCfg.StderrExcerpt,
	})
	h.service = hook.NewService(h.storeComp.Registry(), h.storeComp.Items(), runner)

	slog.Info("Hooks initialized", "component", h.Name(), "timeout", timeout, "root", h.dataCfg.Root)
	return nil
}

func (h *HooksComponent) Start(ctx context.Context) error {
	return nil
}

func (h *HooksComponent) Stop(ctx context.Context) error {
	return nil
}

func (h *HooksComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.service == nil {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
	}, nil
}

func (h *HooksComponent) Service() *hook.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.service
}
