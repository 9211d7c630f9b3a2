package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/hubblepad/internal/config"
	"github.com/harunnryd/hubblepad/internal/daemon/components"
	"github.com/harunnryd/hubblepad/internal/formatter"

	"github.com/spf13/cobra"
)

// localRuntime is the subset of daemon components a one-shot command needs.
type localRuntime struct {
	store *components.StoreComponent
	hooks *components.HooksComponent
}

// executeWithRuntime initialises the store and hook service against the local
// data directory, without the HTTP server or scheduler, and runs fn.
func executeWithRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *localRuntime) error) error {
	if cfg == nil {
		loaded, err := config.Load(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := &localRuntime{store: components.NewStoreComponent(&cfg.Data, &cfg.Store)}
	rt.hooks = components.NewHooksComponent(&cfg.Data, &cfg.Hooks, rt.store)

	if err := rt.store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer rt.store.Stop(context.Background())

	if err := rt.hooks.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize hooks: %w", err)
	}

	return fn(ctx, rt)
}

func outputFormatter(cmd *cobra.Command) (formatter.Formatter, error) {
	raw, _ := cmd.Flags().GetString("output")
	if raw == "" {
		raw = string(formatter.OutputFormatTable)
	}
	format, err := formatter.ParseOutputFormat(raw)
	if err != nil {
		return nil, err
	}
	return formatter.NewFormatterFactory().Create(format)
}
