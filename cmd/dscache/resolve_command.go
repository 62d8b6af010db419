package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <remote-path>...",
		Short: "Resolve remote paths to their cached local copies",
		Long: "Resolve prints, for each remote path, the path the file should be read\n" +
			"from: the node-local cached copy when caching is possible, otherwise the\n" +
			"remote path unchanged. The first resolve of a file copies it locally;\n" +
			"reader markers held on cached copies are released when dscache exits.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := ctx.coordinator()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				remotePath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				res, err := coord.Resolve(cmd.Context(), remotePath)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				fmt.Fprintln(out, res.Path)
			}
			return nil
		},
	}
}
