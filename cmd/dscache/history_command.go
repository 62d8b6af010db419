package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent resolve events from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lgr, err := ctx.ensureLedger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lgr == nil {
				fmt.Fprintln(out, "ledger is disabled (set paths.ledger_path to enable)")
				return nil
			}

			events, err := lgr.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "no resolve events recorded")
				return nil
			}

			rows := make([][]string, 0, len(events))
			for _, event := range events {
				reason := event.Reason
				if reason == "" {
					reason = "-"
				}
				rows = append(rows, []string{
					event.CreatedAt.Local().Format(time.RFC3339),
					string(event.Outcome),
					event.RemotePath,
					formatBytes(event.Bytes),
					reason,
				})
			}

			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable(
					[]string{"Time", "Outcome", "Remote Path", "Size", "Reason"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
			} else {
				fmt.Fprint(out, renderPlain(rows))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show")
	return cmd
}
