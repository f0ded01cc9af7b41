package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"lantern/internal/apiclient"
	"lantern/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) apiAddress() string {
	if c.apiFlag != nil {
		if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
			return addr
		}
	}
	if cfg := c.configValue(); cfg != nil {
		if addr := strings.TrimSpace(cfg.Paths.APIBind); addr != "" {
			return addr
		}
	}
	return config.Default().Paths.APIBind
}

func (c *commandContext) client() *apiclient.Client {
	return apiclient.New(c.apiAddress())
}

// wrapAPIError turns transport failures into actionable messages; API
// level errors already carry the daemon's wording.
func (c *commandContext) wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `lantern serve`", c.apiAddress())
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
