package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/reel/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the local database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenStore(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writeOK("Database ready at %s", r.config.Database.Path)
}

// SetupConfig writes the default configuration to the --config path. An existing file is never overwritten.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writeOK("Configuration written to %s", path)
	return r.writePlain("Edit server.base_url, then run 'reel setup database'\n")
}

// argString returns the i-th positional argument, failing with [shared.ErrMissingArgument] when it is blank.
func argString(cmd *cli.Command, i int, name string) (string, error) {
	v := strings.TrimSpace(cmd.Args().Get(i))
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// argInt returns the i-th positional argument as a positive integer.
func argInt(cmd *cli.Command, i int, name string) (int, error) {
	v, err := argString(cmd, i, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, v)
	}
	return n, nil
}
