package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <digest-id>",
		Short: "Cancel a non-terminal digest and remove its pending stage jobs",
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

			if err := orch.Cancel(cmd.Context(), digestID); err != nil {
				return fmt.Errorf("cancel: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cancelled digest %d\n", digestID)
			return nil
		},
	}
}
