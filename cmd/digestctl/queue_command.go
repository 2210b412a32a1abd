package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect pipeline queue state",
	}
	cmd.AddCommand(newQueueHealthCommand(ctx))
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show pending/leased/completed/failed counts for every pipeline queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, q, _, err := ctx.open()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stageQueueNames))
			for _, name := range stageQueueNames {
				stats, err := q.Stats(cmd.Context(), name)
				if err != nil {
					return fmt.Errorf("stats for %s: %w", name, err)
				}
				rows = append(rows, []string{
					name,
					humanize.Comma(int64(stats.Pending)),
					humanize.Comma(int64(stats.Leased)),
					humanize.Comma(int64(stats.Completed)),
					humanize.Comma(int64(stats.Failed)),
				})
			}

			headers := []string{"queue", "pending", "leased", "completed", "failed"}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}
