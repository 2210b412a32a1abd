package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <user-id> <config-id>",
		Short: "Create a new digest for a user's config and enqueue its crawl job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid config id %q: %w", args[1], err)
			}

			_, _, _, orch, err := ctx.open()
			if err != nil {
				return err
			}

			digestID, err := orch.Trigger(cmd.Context(), args[0], configID)
			if err != nil {
				return fmt.Errorf("trigger: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "triggered digest %d for user %s (config %d)\n", digestID, args[0], configID)
			return nil
		},
	}
}
