// Package main provides the caseflow CLI: run a single ticket, serve
// the REST API, or consume tickets from a queue.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "caseflow",
		Usage:                 "Run support tickets through the staged pipeline",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunCommand(),
			APICommand(),
			WorkerCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "common-url",
			Usage:   "Base URL of the COMMON capability server (canned responses if empty)",
			Sources: cli.EnvVars("COMMON_PROVIDER_URL"),
		},
		&cli.StringFlag{
			Name:    "atlas-url",
			Usage:   "Base URL of the ATLAS capability server (canned responses if empty)",
			Sources: cli.EnvVars("ATLAS_PROVIDER_URL"),
		},
	}
}
