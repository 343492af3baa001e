// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// fetchCommand handles the read path: filtered, paginated task listing.
func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch tasks from the table",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "app",
				Usage: "App package name to filter by (required)",
			},
			&cli.StringFlag{
				Name:  "scene",
				Usage: "Scene to filter by (required)",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by task status",
				Value: "pending",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Date preset filter (Today, Yesterday, ..., Any for no filter)",
				Value: "Today",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tasks to return (0 for unlimited)",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Rows requested per API page",
				Value: 200,
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Maximum number of pages to scan (0 for unlimited)",
			},
			&cli.StringFlag{
				Name:  "view",
				Usage: "View ID to scan (implies --use-view)",
			},
			&cli.BoolFlag{
				Name:  "use-view",
				Usage: "Scan the configured view instead of the whole table",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "Include raw column values per task",
			},
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Resume from the last saved scan position",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "jsonl",
				Usage: "Output one JSON object per task line",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "csv",
				Aliases: []string{"o"},
				Usage:   "Write tasks to a CSV file at this path",
			},
		},
		Action: r.Fetch,
	}
}

// createCommand handles the write path: single or bulk task creation.
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create tasks in the table",
		Flags: append([]cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Bulk input file, JSON or JSONL ('-' for stdin)",
			},
			&cli.StringFlag{
				Name:  "skip-existing",
				Usage: "Comma-separated fields to dedup on (e.g. task_id,biz_task_id)",
			},
			&cli.StringFlag{
				Name:  "extra",
				Usage: "Extra payload, JSON or plain text",
			},
			&cli.StringFlag{
				Name:  "group-id",
				Usage: "Group ID (derived from app/book/user when omitted)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		}, taskValueFlags()...),
		Action: r.Create,
	}
}

// updateCommand handles in-place task updates addressed by record, task or
// business id.
func updateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Update existing tasks in the table",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Bulk input file, JSON or JSONL ('-' for stdin)",
			},
			&cli.StringFlag{
				Name:  "record-id",
				Usage: "Target record ID",
			},
			&cli.StringFlag{
				Name:  "task-id",
				Usage: "Target task ID",
			},
			&cli.StringFlag{
				Name:  "biz-task-id",
				Usage: "Target business task ID",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "New task status",
			},
			&cli.StringFlag{
				Name:  "skip-status",
				Usage: "Comma-separated statuses to leave untouched (e.g. done,failed)",
			},
			&cli.StringFlag{
				Name:  "date",
				Usage: "Date value ('now', epoch or datetime)",
			},
			&cli.StringFlag{
				Name:  "device-serial",
				Usage: "Device serial",
			},
			&cli.StringFlag{
				Name:  "dispatched-at",
				Usage: "Dispatch time ('now', epoch or datetime)",
			},
			&cli.StringFlag{
				Name:  "start-at",
				Usage: "Start time ('now', epoch or datetime)",
			},
			&cli.StringFlag{
				Name:  "completed-at",
				Usage: "Completion time, overrides end time",
			},
			&cli.StringFlag{
				Name:  "end-at",
				Usage: "End time ('now', epoch or datetime)",
			},
			&cli.StringFlag{
				Name:  "elapsed",
				Usage: "Elapsed seconds (derived from start/end when omitted)",
			},
			&cli.StringFlag{
				Name:  "items-collected",
				Usage: "Items collected count",
			},
			&cli.StringFlag{
				Name:  "logs",
				Usage: "Log text",
			},
			&cli.StringFlag{
				Name:  "retry-count",
				Usage: "Retry count",
			},
			&cli.StringFlag{
				Name:  "extra",
				Usage: "Extra payload, JSON or plain text",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Update,
	}
}

// runsCommand lists locally recorded run history.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recent run history",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Runs,
	}
}

// configCommand handles configuration management.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a starter config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Destination path",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "fields",
				Usage:  "Show the effective logical-to-column field mapping",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigFields,
			},
		},
	}
}

// taskValueFlags are the per-field flags shared by single-task creation.
func taskValueFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "task-id", Usage: "Task ID"},
		&cli.StringFlag{Name: "biz-task-id", Usage: "Business task ID"},
		&cli.StringFlag{Name: "parent-task-id", Usage: "Parent task ID"},
		&cli.StringFlag{Name: "app", Usage: "App package name"},
		&cli.StringFlag{Name: "scene", Usage: "Scene"},
		&cli.StringFlag{Name: "params", Usage: "Task parameters"},
		&cli.StringFlag{Name: "item-id", Usage: "Item ID"},
		&cli.StringFlag{Name: "book-id", Usage: "Book ID"},
		&cli.StringFlag{Name: "url", Usage: "Target URL"},
		&cli.StringFlag{Name: "user-id", Usage: "User ID"},
		&cli.StringFlag{Name: "user-name", Usage: "User name"},
		&cli.StringFlag{Name: "date", Usage: "Date value ('now', epoch or datetime)"},
		&cli.StringFlag{Name: "status", Usage: "Task status"},
		&cli.StringFlag{Name: "device-serial", Usage: "Device serial"},
		&cli.StringFlag{Name: "dispatched-at", Usage: "Dispatch time ('now', epoch or datetime)"},
		&cli.StringFlag{Name: "start-at", Usage: "Start time ('now', epoch or datetime)"},
		&cli.StringFlag{Name: "completed-at", Usage: "Completion time, overrides end time"},
		&cli.StringFlag{Name: "end-at", Usage: "End time ('now', epoch or datetime)"},
		&cli.StringFlag{Name: "elapsed", Usage: "Elapsed seconds (derived from start/end when omitted)"},
		&cli.StringFlag{Name: "items-collected", Usage: "Items collected count"},
		&cli.StringFlag{Name: "logs", Usage: "Log text"},
		&cli.StringFlag{Name: "retry-count", Usage: "Retry count"},
		&cli.StringFlag{Name: "screenshot", Usage: "Last screenshot reference"},
	}
}
