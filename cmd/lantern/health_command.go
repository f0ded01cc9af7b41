package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run the daemon's readiness checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return ctx.wrapAPIError(err)
			}

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Health", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, check := range report.Checks {
					fmt.Fprintln(out, renderStatusLine(check.Name, readyKind(check.Ready), check.Detail, colorize))
				}
			}

			if !report.Ready {
				return errors.New("daemon reports degraded health")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
