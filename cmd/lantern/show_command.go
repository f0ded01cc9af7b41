package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job with its status history and provider usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			client := ctx.client()

			described, err := client.Job(cmd.Context(), jobID)
			if err != nil {
				return ctx.wrapAPIError(err)
			}
			history, err := client.History(cmd.Context(), jobID)
			if err != nil {
				return ctx.wrapAPIError(err)
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"job":     described.Job,
					"usage":   described.Usage,
					"history": history.Events,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			job := described.Job

			for _, line := range renderSectionHeader("Job "+job.JobID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, detailLine("File", job.OriginalFilename))
			fmt.Fprintln(out, detailLine("Mode", job.GenerationMode))
			fmt.Fprintln(out, detailLine("Status", statusLabel(job.Status)))
			if job.Error != "" {
				fmt.Fprintln(out, detailLine("Error", job.Error))
			}
			if job.CancelRequested {
				fmt.Fprintln(out, detailLine("Cancel requested", yesNo(true)))
			}
			fmt.Fprintln(out, detailLine("Created (UTC)", formatDisplayTime(job.CreatedAt)))
			fmt.Fprintln(out, detailLine("Updated (UTC)", formatDisplayTime(job.UpdatedAt)))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("History", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Seq", "Status", "Detail", "At (UTC)"},
				buildHistoryRows(history.Events), 1))

			if len(described.Usage) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Provider Usage", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Stage", "Provider", "Model", "Prompt", "Completion", "Total"},
					buildUsageRows(described.Usage), 4, 5, 6))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func detailLine(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value)
}
