package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/amsctl/internal/auth"
	"github.com/desertthunder/amsctl/internal/repositories"
	"github.com/desertthunder/amsctl/internal/services"
	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/desertthunder/amsctl/internal/tasks"
	"github.com/urfave/cli/v3"
)

const loginHint = "run `amsctl auth login` to start a new session"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The credential store, pipeline and API client are built on first use so that commands like
// `setup config` work before a configuration exists.
type Runner struct {
	config    *shared.Config
	transport http.RoundTripper
	store     auth.CredentialStore
	ownsStore bool
	client    *services.Client
	engine    *tasks.Engine
	db        *sql.DB
	runs      *repositories.ImportRunRepository
	logger    *log.Logger
	output    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Transport http.RoundTripper // base transport of the pipeline, defaults to http.DefaultTransport
	Store     auth.CredentialStore // overrides store.driver; left open by After
	Client    *services.Client
	Runs      *repositories.ImportRunRepository
	Logger    *log.Logger
	Output    io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:    opts.Config,
		transport: opts.Transport,
		store:     opts.Store,
		client:    opts.Client,
		runs:      opts.Runs,
		logger:    opts.Logger,
		output:    opts.Output,
	}
	if r.client != nil {
		r.store = r.client.Pipeline().Store()
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, usersCommand, artistsCommand, musicCommand, importsCommand, proxyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by the global --config flag, honoring a .env file and
// environment overrides. A missing file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadDotEnv(); err != nil {
		r.logger.Warn("ignoring .env file", "error", err)
	}

	if r.config == nil {
		path := cmd.String("config")
		config, err := shared.LoadConfig(path)
		switch {
		case err == nil:
			r.logger.Debug("loaded config", "path", path)
		case errors.Is(err, os.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", path)
			config = shared.DefaultConfig()
		default:
			return ctx, err
		}
		r.config = config
	}
	r.config.ApplyEnv()

	return ctx, nil
}

// After releases the credential store and the database opened while running a command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if r.ownsStore {
		errs = append(errs, r.store.Close())
		r.store, r.client, r.engine, r.ownsStore = nil, nil, nil, false
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db, r.runs, r.engine = nil, nil, nil
	}
	return errors.Join(errs...)
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// connect builds the credential store, pipeline and API client from the configuration.
func (r *Runner) connect() (*services.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	store := r.store
	if store == nil {
		var deps auth.Dependencies
		if r.config.Store.Driver == auth.DriverSQLite {
			db, err := r.database()
			if err != nil {
				return nil, err
			}
			deps.DB = db
		}

		opened, err := auth.NewStore(r.config.Store, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential store: %w", err)
		}
		store = opened
		r.ownsStore = true
	}

	pipeline, err := auth.NewPipeline(auth.Options{
		BaseURL:        r.config.API.BaseURL,
		Store:          store,
		Transport:      r.transport,
		Redirector:     auth.RedirectFunc(r.redirect),
		EntryPoint:     r.config.Auth.EntryPoint,
		RefreshPath:    r.config.Auth.RefreshPath,
		RefreshTimeout: r.config.Auth.RefreshTimeout(),
		Policy:         auth.Policy{AccessTTL: r.config.Auth.AccessTTL(), RefreshTTL: r.config.Auth.RefreshTTL()},
		Logger:         shared.WithLogger(r.logger, "component", "pipeline"),
	})
	if err != nil {
		if r.ownsStore {
			store.Close()
			r.ownsStore = false
		}
		return nil, err
	}

	r.store = store
	r.client = services.NewClient(pipeline, services.ClientOptions{
		Timeout:   r.config.API.Timeout(),
		RateLimit: r.config.API.RateLimit,
		Burst:     r.config.API.Burst,
		Logger:    shared.WithLogger(r.logger, "component", "client"),
	})
	r.logger.Debug("connected", "api", pipeline.BaseURL(), "store", r.config.Store.Driver)
	return r.client, nil
}

// redirect is where the pipeline sends the session after an unrecoverable failure.
func (r *Runner) redirect(_ context.Context, path string) {
	r.logger.Warn("session ended, "+loginHint, "entry", path)
}

// database opens the local sqlite database, applying migrations on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	cfg := r.config.Database
	cfg.Path = shared.ExpandHome(cfg.Path)

	db, err := shared.OpenMigrated(cfg)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// importRuns returns the import history repository, or nil when the database cannot be opened.
func (r *Runner) importRuns() *repositories.ImportRunRepository {
	if r.runs != nil {
		return r.runs
	}
	db, err := r.database()
	if err != nil {
		r.logger.Warn("import history unavailable", "error", err)
		return nil
	}
	r.runs = repositories.NewImportRunRepository(db)
	return r.runs
}

// taskEngine returns the export/import engine, connecting first when needed.
func (r *Runner) taskEngine() (*tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	client, err := r.connect()
	if err != nil {
		return nil, err
	}

	var recorder tasks.RunRecorder
	if runs := r.importRuns(); runs != nil {
		recorder = runs
	}
	r.engine = tasks.NewEngine(client, recorder, shared.WithLogger(r.logger, "component", "tasks"))
	return r.engine, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
