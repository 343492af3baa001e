package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/bitsync/internal/formatter"
	"github.com/desertthunder/bitsync/internal/shared"
	"github.com/desertthunder/bitsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runs lists recent runs recorded in the local state database.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	repo := r.openRuns()
	if repo == nil {
		return fmt.Errorf("%w: run history is disabled (set store.path in config.toml)", shared.ErrMissingConfig)
	}

	runs, err := repo.ListRuns(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet.\n")
	}
	return r.writePlain("%s", formatter.RenderRunTable(runs))
}

// ConfigInit writes a starter configuration file.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config created", "path", path)
	return r.writePlain("Wrote %s. Fill in the [feishu] credentials and table URL.\n", path)
}

// ConfigFields prints the effective logical-to-column field mapping after
// config file and environment overrides.
func (r *Runner) ConfigFields(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	mapping := tasks.NewFieldMap(r.config.Fields)

	logical := make([]string, 0, len(mapping))
	for name := range mapping {
		logical = append(logical, name)
	}
	sort.Strings(logical)

	for _, name := range logical {
		r.writePlain("%-20s %s\n", name, mapping.Column(name))
	}
	return nil
}
