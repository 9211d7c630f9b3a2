package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect work items",
}

var itemsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List work items",
	Long:  `Display the work item document in stored order.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := outputFormatter(cmd)
		if err != nil {
			return fmt.Errorf("invalid output format: %w", err)
		}

		return executeWithRuntime(cmd, func(ctx context.Context, rt *localRuntime) error {
			items, err := rt.store.Items().LoadAll()
			if err != nil {
				return fmt.Errorf("failed to load work items: %w", err)
			}

			output, err := f.FormatItems(items)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		})
	},
}

func init() {
	itemsLsCmd.Flags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	itemsCmd.AddCommand(itemsLsCmd)
	rootCmd.AddCommand(itemsCmd)
}
