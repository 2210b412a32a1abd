package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <digest-id>",
		Short: "Show a digest's current pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digestID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid digest id %q: %w", args[0], err)
			}

			_, repo, _, _, err := ctx.open()
			if err != nil {
				return err
			}

			digest, err := repo.FindDigestForUpdate(cmd.Context(), digestID)
			if err != nil {
				return fmt.Errorf("load digest: %w", err)
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"ID", strconv.FormatInt(digest.ID, 10)},
				{"User", digest.UserID},
				{"Config", strconv.FormatInt(digest.ConfigID, 10)},
				{"Title", digest.Title},
				{"Status", string(digest.Status)},
				{"Clips", strconv.Itoa(digest.ClipCount)},
				{"Version", strconv.FormatInt(digest.Version, 10)},
				{"Created", humanize.Time(digest.CreatedAt)},
				{"Updated", humanize.Time(digest.UpdatedAt)},
			}
			if digest.AudioObjectKey != "" {
				rows = append(rows, []string{"Audio object", digest.AudioObjectKey})
			}
			if digest.TotalDurationSec != nil {
				rows = append(rows, []string{"Duration", fmt.Sprintf("%.0fs", *digest.TotalDurationSec)})
			}
			if digest.Error != "" {
				rows = append(rows, []string{"Error", digest.Error})
			}

			fmt.Fprintln(out, renderTable([]string{"field", "value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
