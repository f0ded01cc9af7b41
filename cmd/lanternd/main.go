// Command lanternd runs the Lantern daemon without the CLI wrapper, for
// init systems that want a dedicated daemon binary. `lantern serve` is
// the equivalent interactive entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"lantern/internal/config"
	"lantern/internal/daemonrun"
)

type cliFlags struct {
	configPath  string
	logLevel    string
	development bool
}

func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("lanternd", flag.ContinueOnError)
	var flags cliFlags
	fs.StringVar(&flags.configPath, "config", "", "Configuration file path")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.BoolVar(&flags.development, "development", false, "Use human readable console logging")
	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return flags, nil
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lanternd: %v\n", err)
		os.Exit(1)
	}

	opts := daemonrun.Options{
		LogLevel:    flags.logLevel,
		Development: flags.development,
	}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "lanternd: %v\n", err)
		os.Exit(1)
	}
}
