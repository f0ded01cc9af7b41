package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List submitted jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.client().Jobs(cmd.Context(), statuses...)
			if err != nil {
				return ctx.wrapAPIError(err)
			}

			if asJSON {
				return writeJSON(cmd, jobs)
			}

			out := cmd.OutOrStdout()
			rows := buildJobRows(jobs)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job ID", "File", "Mode", "Status", "Created (UTC)"}, rows))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
