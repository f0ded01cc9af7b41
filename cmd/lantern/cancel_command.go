package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ack, err := ctx.client().Cancel(cmd.Context(), args[0])
			if err != nil {
				return ctx.wrapAPIError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", ack.JobID)
			fmt.Fprintf(cmd.OutOrStdout(), "The job stops at its next stage boundary. Track it with: lantern show %s\n", ack.JobID)
			return nil
		},
	}
}
