package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := ctx.client().NotifyTest(cmd.Context())
			if err != nil {
				return ctx.wrapAPIError(err)
			}
			switch {
			case outcome.Message != "":
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
			case outcome.Sent:
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
			}
			return nil
		},
	}
}
