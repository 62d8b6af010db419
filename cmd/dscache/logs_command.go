package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dscache/internal/logtail"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent lines from the dscache log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "dscache.log")
			out := cmd.OutOrStdout()

			result, err := logtail.Tail(cmd.Context(), path, logtail.Options{
				Offset: -1,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}

			if !follow {
				return nil
			}
			for {
				result, err = logtail.Tail(cmd.Context(), path, logtail.Options{
					Offset: result.Offset,
					Follow: true,
					Wait:   followWait,
				})
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
