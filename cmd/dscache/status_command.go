package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache roots, disk usage, and resolve history summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Remote root: %s\n", cfg.Paths.RemoteRoot)
			if !cfg.CachingEnabled() {
				fmt.Fprintln(out, "Local cache: disabled (no local root configured)")
				return nil
			}
			fmt.Fprintf(out, "Local root:  %s\n", cfg.Paths.LocalRoot)
			fmt.Fprintf(out, "Lock file:   %s\n", cfg.Paths.LockFile)

			coord, err := ctx.coordinator()
			if err != nil {
				return err
			}

			total, used, ceiling, err := coord.DiskUsage()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Disk usage:  %s of %s used (ceiling %s, %.0f%%)\n",
				formatBytes(int64(used)), formatBytes(int64(total)),
				formatBytes(int64(ceiling)), cfg.Cache.CapacityCeiling*100)

			entries, err := coord.List()
			if err != nil {
				return err
			}
			var cachedBytes int64
			for _, entry := range entries {
				cachedBytes += entry.Size
			}
			fmt.Fprintf(out, "Cached:      %d files, %s\n", len(entries), formatBytes(cachedBytes))

			lgr, err := ctx.ensureLedger()
			if err != nil {
				return err
			}
			if lgr == nil {
				return nil
			}
			summary, err := lgr.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Resolves:    %d total (%d copied, %d reused, %d remote)\n",
				summary.Events, summary.Copied.Count, summary.Reused.Count, summary.Remote.Count)
			return nil
		},
	}
}
