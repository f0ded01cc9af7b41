package preflight

import (
	"context"

	"lantern/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Directory checks always run; provider checks run when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckDirectoryAccess("Upload directory", cfg.UploadsDir()),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	results = append(results, CheckOpenAI(ctx, cfg))
	if cfg.VideoEnabled() {
		results = append(results, CheckVeo(ctx, cfg))
	}

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
