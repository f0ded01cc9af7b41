package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Upload an audio file and enqueue a processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}

			if cfg := ctx.configValue(); cfg != nil {
				ext := strings.ToLower(filepath.Ext(info.Name()))
				if !extensionAllowed(ext, cfg.Upload.AllowedExtensions) {
					return fmt.Errorf("unsupported file extension %q (allowed: %s)",
						ext, strings.Join(cfg.Upload.AllowedExtensions, ", "))
				}
			}

			submitted, err := ctx.client().SubmitFile(cmd.Context(), absPath, mode)
			if err != nil {
				return ctx.wrapAPIError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted job %s (%s)\n", submitted.JobID, filepath.Base(absPath))
			fmt.Fprintf(out, "Track it with: lantern show %s\n", submitted.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Generation mode: image, video, or both (default image)")
	return cmd
}

func extensionAllowed(ext string, allowed []string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}
