package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/reel/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrSessionExpired):
			// the navigator already printed the login hint
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command around runner.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "reel",
		Usage:     "Browse and manage your media library from the terminal",
		Version:   "0.1.0",
		Writer:    r.output,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Media library API base URL (overrides server.base_url)",
				Sources: cli.EnvVars("REEL_BASE_URL"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Bootstrap,
		After:    r.Close,
		Commands: r.register(),
	}
}
