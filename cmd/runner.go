package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bitsync/internal/bitable"
	"github.com/desertthunder/bitsync/internal/shared"
	"github.com/desertthunder/bitsync/internal/store"
	"github.com/desertthunder/bitsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	store      tasks.Store
	runs       *store.RunRepository
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	engine *tasks.Engine
	ref    bitable.TableRef
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Store      tasks.Store
	Runs       *store.RunRepository
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		timeout := time.Duration(opts.Config.Client.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Runner{
		config:     opts.Config,
		store:      opts.Store,
		runs:       opts.Runs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		fetchCommand, createCommand, updateCommand, runsCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// resolveEngine validates the configuration, parses the table reference
// (resolving wiki links through the API when needed) and builds the task
// engine. The result is cached for the lifetime of the process.
func (r *Runner) resolveEngine(ctx context.Context) (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	ref, err := bitable.ParseTableURL(r.config.Table.URL)
	if err != nil {
		return nil, err
	}

	if r.store == nil {
		tokens := bitable.NewTenantTokenSource(
			r.config.Feishu.BaseURL, r.config.Feishu.AppID, r.config.Feishu.AppSecret, r.httpClient)
		client := bitable.NewClient(r.config.Feishu.BaseURL, tokens, r.httpClient)
		client.SetRateLimit(r.config.Client.RateLimit)
		r.store = client
	}

	if ref.WikiToken != "" {
		client, ok := r.store.(*bitable.Client)
		if !ok {
			return nil, fmt.Errorf("%w: wiki links require the API client", shared.ErrInvalidReference)
		}
		if err := client.ResolveWikiRef(ctx, &ref); err != nil {
			return nil, err
		}
	}

	if ref.ViewID == "" {
		ref.ViewID = r.config.Table.ViewID
	}

	mapping := tasks.NewFieldMap(r.config.Fields)
	r.ref = ref
	r.engine = tasks.NewEngine(r.store, ref, mapping, r.logger)
	return r.engine, nil
}

// openRuns opens the local run-state database on first use. Run history is
// best effort; failures disable it with a warning instead of failing the
// command.
func (r *Runner) openRuns() *store.RunRepository {
	if r.runs != nil {
		return r.runs
	}
	if r.config.Store.Path == "" {
		return nil
	}

	db, err := store.NewDatabase(r.config.Store.Path)
	if err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		return nil
	}
	store.ConfigureDatabase(db, r.config.Store.MaxOpenConns, r.config.Store.MaxIdleConns)
	if err := store.RunMigrations(db); err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		db.Close()
		return nil
	}

	r.runs = store.NewRunRepository(db)
	return r.runs
}

func (r *Runner) recordRun(run *store.Run) {
	repo := r.openRuns()
	if repo == nil {
		return
	}
	if err := repo.RecordRun(run); err != nil {
		r.logger.Warn("failed to record run", "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// writeJSONL emits one compact JSON object per line.
func (r *Runner) writeJSONL(items []tasks.Task) error {
	encoder := json.NewEncoder(r.output)
	for i := range items {
		if err := encoder.Encode(&items[i]); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
