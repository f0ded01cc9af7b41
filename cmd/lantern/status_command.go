package main

import (
	"errors"
	"fmt"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"lantern/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon runtime state and queue counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				if asJSON || !errors.Is(err, syscall.ECONNREFUSED) {
					return ctx.wrapAPIError(err)
				}
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(out, line)
				}
				message := fmt.Sprintf("not running at %s (start it with `lantern serve`)", ctx.apiAddress())
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, message, colorize))

				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Providers", colorize) {
					fmt.Fprintln(out, line)
				}
				cfg := ctx.configValue()
				for _, result := range []preflight.Result{
					preflight.CheckOpenAIFromConfig(cfg),
					preflight.CheckVeoFromConfig(cfg),
				} {
					kind := statusWarn
					if result.Passed {
						kind = statusOK
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
				return nil
			}

			if asJSON {
				return writeJSON(cmd, status)
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if status.Running {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, strconv.Itoa(status.WorkerCount), colorize))
			fmt.Fprintln(out, renderStatusLine("Video", statusInfo, yesNo(status.VideoEnabled), colorize))
			fmt.Fprintln(out, renderStatusLine("API address", statusInfo, ctx.apiAddress(), colorize))
			if status.QueueDBPath != "" {
				fmt.Fprintln(out, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
			}
			if status.LockFilePath != "" {
				fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := buildJobCountRows(status.JobCounts)
			if len(rows) == 0 {
				fmt.Fprintln(out, statusIndent+"Queue is empty")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, 2))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
