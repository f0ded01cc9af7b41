package preflight

import (
	"strings"

	"lantern/internal/config"
)

// CheckOpenAIFromConfig evaluates OpenAI configuration for status
// output without probing the API.
func CheckOpenAIFromConfig(cfg *config.Config) Result {
	const name = "OpenAI"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return Result{Name: name, Passed: true, Detail: "API key configured"}
}

// CheckVeoFromConfig evaluates Veo configuration for status output.
// Video generation is optional, so an unconfigured Veo section passes.
func CheckVeoFromConfig(cfg *config.Config) Result {
	const name = "Veo"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.VideoEnabled() {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "API key configured"}
}
