package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResultCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Show the artifacts produced for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			result, err := client.Result(cmd.Context(), args[0])
			if err != nil {
				return ctx.wrapAPIError(err)
			}

			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Result "+result.JobID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, detailLine("Title", result.Title))
			if result.ImageURL != "" {
				fmt.Fprintln(out, detailLine("Image", client.URL(result.ImageURL)))
			}
			if result.VideoURL != "" {
				fmt.Fprintln(out, detailLine("Video", client.URL(result.VideoURL)))
			}
			if result.Error != "" {
				fmt.Fprintln(out, detailLine("Error", result.Error))
			}
			fmt.Fprintln(out, detailLine("Created (UTC)", formatDisplayTime(result.CreatedAt)))

			if result.Transcript != "" {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Transcript", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, result.Transcript)
			}
			if result.Summary != "" {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Summary", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, result.Summary)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
