package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Inspect and run hooks",
	Long:  `List the hook registry and run hooks on demand, the same way the dashboard and scheduler do.`,
}

var hooksLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered hooks",
	Long:  `Display every hook in registry order with its index, schedule and last run status.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}

		return executeWithRuntime(cmd, func(ctx context.Context, rt *localRuntime) error {
			hooks, err := rt.store.Registry().LoadAll()
			if err != nil {
				return fmt.Errorf("failed to load hooks: %w", err)
			}

			output, err := f.FormatHooks(hooks)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		})
	},
}

var hooksRunCmd = &cobra.Command{
	Use:   "run <index|name>",
	Short: "Run one hook",
	Long:  `Run a hook by registry index or name. Update hooks merge their items into the work item document.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}

		return executeWithRuntime(cmd, func(ctx context.Context, rt *localRuntime) error {
			report, err := rt.hooks.Service().RunOne(ctx, args[0])
			if err != nil {
				return err
			}

			output, err := f.FormatRun(report)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)

			if !report.OK {
				return fmt.Errorf("hook %q failed: %s", report.Name, report.Error)
			}
			return nil
		})
	},
}

var hooksRunAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run every enabled hook",
	Long:  `Run all enabled hooks concurrently and merge their results in registry order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}

		return executeWithRuntime(cmd, func(ctx context.Context, rt *localRuntime) error {
			batch, err := rt.hooks.Service().RunAll(ctx)
			if err != nil {
				return err
			}

			output, err := f.FormatBatch(batch)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)

			if !batch.OK {
				return fmt.Errorf("one or more hooks failed")
			}
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{hooksLsCmd, hooksRunCmd, hooksRunAllCmd} {
		c.Flags().StringP("output", "o", "table", "Output format (table|json|yaml)")
		hooksCmd.AddCommand(c)
	}
	rootCmd.AddCommand(hooksCmd)
}
