package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dscache/internal/cache"
)

func newGCCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var pruneStale bool

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove cached files that no reader marker pins",
		Long: "Gc deletes cached files with no live reader markers, along with any\n" +
			"abandoned copy temp files. With --stale, markers owned by dead processes\n" +
			"are pruned first so files pinned only by crashed readers become\n" +
			"collectable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator()
			if err != nil {
				return err
			}

			result, err := coord.Sweep(cmd.Context(), cache.SweepOptions{
				DryRun:            dryRun,
				PruneStaleMarkers: pruneStale,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, path := range result.Removed {
				fmt.Fprintf(out, "%s %s\n", verb, path)
			}
			for _, path := range result.Partials {
				fmt.Fprintf(out, "%s partial %s\n", verb, path)
			}
			fmt.Fprintf(out, "%s: %d files (%s), kept %d in-use files (%s), pruned %d stale markers\n",
				verb, len(result.Removed)+len(result.Partials), formatBytes(result.BytesFreed),
				len(result.Kept), formatBytes(result.BytesRetained), len(result.StaleMarkers))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting anything")
	cmd.Flags().BoolVar(&pruneStale, "stale", false, "Prune reader markers owned by dead processes first")
	return cmd
}
