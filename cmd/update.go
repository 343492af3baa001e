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

// Update modifies one task from flags, or many from --input. Targets are
// addressed by record id, task id or business task id.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	engine, err := r.resolveEngine(ctx)
	if err != nil {
		return err
	}

	defaults := tasks.UpdateRequest{
		TaskID:         flagValue(cmd, "task-id"),
		BizTaskID:      cmd.String("biz-task-id"),
		RecordID:       cmd.String("record-id"),
		Status:         cmd.String("status"),
		Date:           flagValue(cmd, "date"),
		DeviceSerial:   cmd.String("device-serial"),
		DispatchedAt:   flagValue(cmd, "dispatched-at"),
		StartAt:        flagValue(cmd, "start-at"),
		CompletedAt:    flagValue(cmd, "completed-at"),
		EndAt:          flagValue(cmd, "end-at"),
		ElapsedSeconds: flagValue(cmd, "elapsed"),
		ItemsCollected: flagValue(cmd, "items-collected"),
		Logs:           cmd.String("logs"),
		RetryCount:     flagValue(cmd, "retry-count"),
		Extra:          flagValue(cmd, "extra"),
	}

	input := cmd.String("input")
	if input == "" && defaults.RecordID == "" && defaults.TaskID == nil && defaults.BizTaskID == "" {
		return fmt.Errorf("%w: pass --record-id, --task-id, --biz-task-id or --input", shared.ErrMissingArgument)
	}

	requests, err := tasks.LoadUpdateRequests(input, defaults)
	if err != nil {
		return err
	}

	skipStatuses := tasks.NormalizeSkipStatuses(cmd.String("skip-status"))

	r.logger.Info("updating tasks", "requests", len(requests), "skip_statuses", skipStatuses)

	summary, err := engine.Update(ctx, requests, skipStatuses)
	if err != nil {
		return err
	}

	r.recordRun(&store.Run{
		Command:        "update",
		TableID:        r.ref.TableID,
		Count:          summary.Updated,
		Skipped:        summary.Skipped,
		Failed:         summary.Failed,
		ElapsedSeconds: summary.ElapsedSeconds,
	})

	if cmd.Bool("json") {
		if err := r.writeJSON(summary, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else if err := r.writePlain("%s", formatter.RenderUpdateSummary(summary)); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("update: %d task(s) failed", summary.Failed)
	}
	return nil
}
