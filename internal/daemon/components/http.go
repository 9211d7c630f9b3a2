package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/hubblepad/internal/api"
	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/daemon"
)

type HTTPServerComponent struct {
	daemon      *daemon.Daemon
	cfg         *config.ServerConfig
	storeComp   *StoreComponent
	hooksComp   *HooksComponent
	version     string
	server      *http.Server
	listener    net.Listener
	shutdownTTL time.Duration
	initialized atomic.Bool
	started     atomic.Bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.ServerConfig, storeComp *StoreComponent, hooksComp *HooksComponent, version string) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:    d,
		cfg:       cfg,
		storeComp: storeComp,
		hooksComp: hooksComp,
		version:   version,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{"Store", "Hooks"}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.storeComp == nil || h.hooksComp == nil || h.hooksComp.Service() == nil {
		return fmt.Errorf("store and hooks components must be initialized first")
	}

	readTimeout, err := config.DurationOrDefault(h.cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	opts := []api.Option{api.WithVersion(h.version)}
	if h.daemon != nil {
		opts = append(opts, api.WithHealth(h.componentHealth))
	}
	handler := api.NewServer(h.storeComp.Items(), h.storeComp.Registry(), h.hooksComp.Service(), opts...)

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized.Store(true)
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Port)
	return nil
}

// Start binds the listening socket synchronously so a busy port fails
// startup instead of being logged from the serving goroutine.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized.Load() {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	go func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}()

	h.started.Store(true)
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started.Load() {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started.Store(false)
	slog.Info("HTTPServer stopped", "component", h.Name(), "uptime", time.Since(h.startTime).Round(time.Second))
	return nil
}

// Health takes no lock: /health calls it while Stop may hold h.mu
// waiting for that very request to finish.
func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if !h.initialized.Load() {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started.Load() {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
	}, nil
}

// Addr is the bound address once started.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPServerComponent) componentHealth() map[string]error {
	result := make(map[string]error)
	for name, ch := range h.daemon.ComponentHealth() {
		if ch.Healthy {
			result[name] = nil
			continue
		}
		result[name] = ch.Error
		if result[name] == nil {
			result[name] = fmt.Errorf("unhealthy")
		}
	}
	return result
}
