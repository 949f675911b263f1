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
	"github.com/desertthunder/reel/internal/repositories"
	"github.com/desertthunder/reel/internal/services"
	"github.com/desertthunder/reel/internal/session"
	"github.com/desertthunder/reel/internal/shared"
	"github.com/desertthunder/reel/internal/tasks"
	"github.com/desertthunder/reel/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store, HTTP stack and session are built lazily by [Runner.connect] so commands that only touch the config
// never open the database.
type Runner struct {
	config      *shared.Config
	configPath  string
	configFixed bool
	logger      *log.Logger
	output      io.Writer
	base        http.RoundTripper
	nav         *Navigator

	db       *sql.DB
	ownsDB   bool
	prefs    *repositories.PreferenceRepository
	jar      *repositories.PersistentJar
	session  *session.Session
	api      *services.APIService
	auth     *services.AuthService
	library  *services.LibraryService
	settings *tasks.SettingsSync
	exporter *tasks.TitleExporter
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Transport  http.RoundTripper // innermost round tripper, defaults to [http.DefaultTransport]
	DB         *sql.DB           // already open store; the runner will not close it
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		configFixed: opts.Config != nil,
		logger:      opts.Logger,
		output:      opts.Output,
		base:        opts.Transport,
		db:          opts.DB,
	}

	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(nil)
	}
	if r.output == nil {
		r.output = os.Stdout
	}

	r.nav = NewNavigator(r.output, r.palette)
	return r
}

// Run executes the command tree for args. A request rejected with 401 after the session expired comes back
// wrapped in [shared.ErrSessionExpired].
func (r *Runner) Run(ctx context.Context, args []string) error {
	err := newApp(r).Run(ctx, args)
	if !errors.Is(err, shared.ErrUnauthorized) {
		return err
	}
	if last, ok := r.nav.Last(); ok && last.Reason == session.ReasonSessionExpired {
		return fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
	}
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, titlesCommand, settingsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Bootstrap loads the configuration named by --config and applies the global overrides.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if !r.configFixed && r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	if cmd.IsSet("base-url") {
		r.config.Server.BaseURL = cmd.String("base-url")
	}

	level := r.config.LogLevel()
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, r.config.Validate()
}

// Close releases the store when the runner opened it.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// connect opens the store and wires the authenticated HTTP stack.
//
// The client is created before the session and gets its transport afterwards: the session refreshes through
// the auth service, which uses the same client, while the transport needs the session to decorate requests.
func (r *Runner) connect() error {
	if r.session != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.OpenStore(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		r.db = db
		r.ownsDB = true
	} else if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.prefs = repositories.NewPreferenceRepository(r.db)

	jar, err := repositories.NewPersistentJar(
		repositories.NewCookieRepository(r.db), shared.WithLogger(r.logger, "component", "jar"),
	)
	if err != nil {
		return err
	}
	r.jar = jar

	client := &http.Client{Jar: jar, Timeout: r.config.HTTP.Timeout()}
	r.api = services.NewAPIService(r.config.Server.BaseURL, client)
	r.auth = services.NewAuthService(r.api)
	r.session = session.New(r.auth, r.nav, shared.WithLogger(r.logger, "component", "session"))
	client.Transport = services.NewTransport(services.TransportOpts{
		Base:              r.base,
		Session:           r.session,
		BaseURL:           r.api.BaseURL(),
		RequestsPerSecond: r.config.HTTP.RequestsPerSecond,
		Logger:            r.logger,
	})

	r.library = services.NewLibraryService(r.api)
	r.settings = tasks.NewSettingsSync(services.NewSettingsService(r.api), r.prefs, r.logger)
	r.exporter = tasks.NewTitleExporter(r.library, r.logger)

	r.logger.Debug("client ready", "base_url", r.api.BaseURL())
	return nil
}

// useStore is the Before hook for commands that only need the local cache and HTTP stack.
func (r *Runner) useStore(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	return ctx, r.connect()
}

// useSession connects and performs the one-time silent refresh without requiring a credential.
func (r *Runner) useSession(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := r.connect(); err != nil {
		return ctx, err
	}
	_, err := r.session.Init(ctx)
	return ctx, err
}

// requireAuth is the Before hook for protected commands.
func (r *Runner) requireAuth(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := r.connect(); err != nil {
		return ctx, err
	}
	return ctx, r.session.RequireAuth(ctx)
}

// palette picks the output colors from the cached theme preference.
func (r *Runner) palette() *ui.Palette {
	if r.prefs == nil {
		return ui.ForTheme(repositories.DefaultPreferences["theme"])
	}
	pref, err := r.prefs.Get("theme")
	if err != nil {
		return ui.ForTheme(repositories.DefaultPreferences["theme"])
	}
	return ui.ForTheme(pref.Value)
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

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeOK(format string, args ...any) error {
	return r.writePlain("%s\n", r.palette().OK("✓ "+fmt.Sprintf(format, args...)))
}

func (r *Runner) writeWarn(format string, args ...any) error {
	return r.writePlain("%s\n", r.palette().Warn("! "+fmt.Sprintf(format, args...)))
}
