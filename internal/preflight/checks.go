package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lantern/internal/config"
	"lantern/internal/services/openai"
	"lantern/internal/services/veo"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOpenAI verifies the OpenAI API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckOpenAI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI"

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := openai.NewFromConfig(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	health := client.CheckHealth(checkCtx)
	if !health.Ready {
		return Result{Name: name, Detail: health.Detail}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckVeo verifies the Veo model endpoint is visible with the
// configured key. It uses a 30-second timeout and a single attempt.
func CheckVeo(ctx context.Context, cfg *config.Config) Result {
	const name = "Veo"

	if strings.TrimSpace(cfg.Veo.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := veo.NewFromConfig(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	health := client.CheckHealth(checkCtx)
	if !health.Ready {
		return Result{Name: name, Detail: health.Detail}
	}
	return Result{Name: name, Passed: true, Detail: "model reachable"}
}
