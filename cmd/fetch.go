package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/bitsync/internal/formatter"
	"github.com/desertthunder/bitsync/internal/shared"
	"github.com/desertthunder/bitsync/internal/store"
	"github.com/desertthunder/bitsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadConfig reloads the configuration when a non-default path was passed on
// the command line. The default path is already handled at startup.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" || path == "config.toml" {
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	r.engine = nil
	return nil
}

// Fetch pages through the table with the requested filters and prints the
// decoded tasks.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	if cmd.String("app") == "" || cmd.String("scene") == "" {
		return fmt.Errorf("%w: --app and --scene are required", shared.ErrMissingArgument)
	}

	engine, err := r.resolveEngine(ctx)
	if err != nil {
		return err
	}

	// The view narrows the scan only when asked for; a bare fetch scans the
	// whole table so filters see every row.
	viewID := cmd.String("view")
	useView := cmd.Bool("use-view") || viewID != ""

	opts := tasks.FetchOpts{
		App:        cmd.String("app"),
		Scene:      cmd.String("scene"),
		Status:     cmd.String("status"),
		DatePreset: cmd.String("date"),
		Limit:      cmd.Int("limit"),
		PageSize:   cmd.Int("page-size"),
		MaxPages:   cmd.Int("max-pages"),
		ViewID:     viewID,
		IgnoreView: !useView,
		IncludeRaw: cmd.Bool("raw"),
	}

	resume := cmd.Bool("resume")
	if resume {
		if repo := r.openRuns(); repo != nil {
			opts.PageToken = repo.LoadCheckpoint(r.ref.TableID)
			if opts.PageToken != "" {
				r.logger.Info("resuming scan", "table", r.ref.TableID)
			}
		}
	}

	r.logger.Info("fetching tasks",
		"app", opts.App, "scene", opts.Scene, "status", opts.Status, "date", opts.DatePreset)

	result, err := engine.Fetch(ctx, opts)
	if err != nil {
		return err
	}

	if resume {
		if repo := r.openRuns(); repo != nil {
			if err := repo.SaveCheckpoint(r.ref.TableID, result.PageInfo.NextPageToken); err != nil {
				r.logger.Warn("failed to save checkpoint", "error", err)
			}
		}
	}

	r.recordRun(&store.Run{
		Command:        "fetch",
		TableID:        r.ref.TableID,
		Count:          result.Count,
		ElapsedSeconds: result.ElapsedSeconds,
	})

	if path := cmd.String("csv"); path != "" {
		written, err := formatter.WriteCSVExport(result.Tasks, path)
		if err != nil {
			return err
		}
		r.writePlain("Wrote %d task(s) to %s\n", result.Count, written)
		return nil
	}

	if cmd.Bool("jsonl") {
		return r.writeJSONL(result.Tasks)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	if err := r.writePlain("%s", formatter.RenderTaskTable(result.Tasks)); err != nil {
		return err
	}
	if result.PageInfo.HasMore {
		r.writePlain("More rows remain; re-run with --resume to continue.\n")
	}
	return nil
}
