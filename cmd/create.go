package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/bitsync/internal/formatter"
	"github.com/desertthunder/bitsync/internal/store"
	"github.com/desertthunder/bitsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// flagValue returns a flag's string value as an any-typed coercion input,
// nil when the flag was left empty.
func flagValue(cmd *cli.Command, name string) any {
	v := cmd.String(name)
	if v == "" {
		return nil
	}
	return v
}

// Create writes one task from flags, or many from --input, skipping items
// that already exist per --skip-existing.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	engine, err := r.resolveEngine(ctx)
	if err != nil {
		return err
	}

	defaults := tasks.CreateRequest{
		TaskID:         flagValue(cmd, "task-id"),
		BizTaskID:      cmd.String("biz-task-id"),
		ParentTaskID:   cmd.String("parent-task-id"),
		App:            cmd.String("app"),
		Scene:          cmd.String("scene"),
		Params:         cmd.String("params"),
		ItemID:         cmd.String("item-id"),
		BookID:         cmd.String("book-id"),
		URL:            cmd.String("url"),
		UserID:         cmd.String("user-id"),
		UserName:       cmd.String("user-name"),
		Date:           flagValue(cmd, "date"),
		Status:         cmd.String("status"),
		DeviceSerial:   cmd.String("device-serial"),
		DispatchedAt:   flagValue(cmd, "dispatched-at"),
		StartAt:        flagValue(cmd, "start-at"),
		CompletedAt:    flagValue(cmd, "completed-at"),
		EndAt:          flagValue(cmd, "end-at"),
		ElapsedSeconds: flagValue(cmd, "elapsed"),
		ItemsCollected: flagValue(cmd, "items-collected"),
		Logs:           cmd.String("logs"),
		RetryCount:     flagValue(cmd, "retry-count"),
		LastScreenshot: cmd.String("screenshot"),
		GroupID:        cmd.String("group-id"),
		Extra:          flagValue(cmd, "extra"),
	}

	requests, err := tasks.LoadCreateRequests(cmd.String("input"), defaults, engine.Fields())
	if err != nil {
		return err
	}

	skipFields := tasks.NormalizeSkipFields(cmd.String("skip-existing"))

	r.logger.Info("creating tasks", "requests", len(requests), "skip_fields", skipFields)

	summary, err := engine.Create(ctx, requests, skipFields)
	if err != nil {
		return err
	}

	r.recordRun(&store.Run{
		Command:        "create",
		TableID:        r.ref.TableID,
		Count:          summary.Created,
		Skipped:        summary.Skipped,
		Failed:         summary.Failed,
		ElapsedSeconds: summary.ElapsedSeconds,
	})

	if cmd.Bool("json") {
		if err := r.writeJSON(summary, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", formatter.RenderCreateSummary(summary)); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("create: %d task(s) failed", summary.Failed)
	}
	return nil
}
