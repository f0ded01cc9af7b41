package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lantern/internal/daemonrun"
	"lantern/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's current run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := daemonrun.CurrentLogPath(cfg)
			out := cmd.OutOrStdout()

			last, offset, err := logs.ReadLast(path, lines)
			if err != nil {
				return err
			}
			if len(last) == 0 && !follow {
				fmt.Fprintf(out, "No log entries at %s\n", path)
				return nil
			}
			for _, line := range last {
				fmt.Fprintln(out, line)
			}

			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	return cmd
}
