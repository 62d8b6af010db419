package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newLsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cached files with size and reader counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator()
			if err != nil {
				return err
			}
			entries, err := coord.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "cache is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.LocalPath,
					formatBytes(entry.Size),
					entry.ModTime.Format(time.RFC3339),
					strconv.Itoa(entry.Readers),
				})
			}

			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable(
					[]string{"Path", "Size", "Cached At", "Readers"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
				))
			} else {
				fmt.Fprint(out, renderPlain(rows))
			}
			return nil
		},
	}
}
