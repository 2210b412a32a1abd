package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <digest-id>",
		Short: "Reset a failed digest back to pending and re-enqueue its crawl job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digestID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid digest id %q: %w", args[0], err)
			}

			_, _, _, orch, err := ctx.open()
			if err != nil {
				return err
			}

			if err := orch.Retry(cmd.Context(), digestID); err != nil {
				return fmt.Errorf("retry: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "retrying digest %d\n", digestID)
			return nil
		},
	}
}
