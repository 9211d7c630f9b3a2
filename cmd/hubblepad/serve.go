package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/hubblepad/internal/daemon"
	"github.com/harunnryd/hubblepad/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Run the dashboard server and hook scheduler",
	Long:    `Starts the HTTP server for the dashboard and the hook scheduler. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		storeComp := components.NewStoreComponent(&cfg.Data, &cfg.Store)
		hooksComp := components.NewHooksComponent(&cfg.Data, &cfg.Hooks, storeComp)
		schedulerComp := components.NewSchedulerComponent(&cfg.Scheduler, storeComp, hooksComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, &cfg.Server, storeComp, hooksComp, version)

		daemonMgr.AddComponent(storeComp)
		daemonMgr.AddComponent(hooksComp)
		daemonMgr.AddComponent(schedulerComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("Hubblepad starting up...", "port", cfg.Server.Port, "data", cfg.Data.Dir, "version", version)
		err = daemonMgr.Start(cmd.Context())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Hubblepad stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Hubblepad stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
