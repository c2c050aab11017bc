package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/dialogue"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/registry"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// HistoryStore records created playlists, lists them back and removes them.
type HistoryStore interface {
	Create(record *models.PlaylistRecord) error
	List(limit int, mood string) ([]*models.PlaylistRecord, error)
	Find(id string) (*models.PlaylistRecord, error)
	Delete(id string) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies are built lazily: history only needs the database, chat and playlist
// commands need the full engine.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	output      io.Writer
	input       io.Reader
	db          *sql.DB
	tokenRepo   *repositories.TokenRepository
	tokens      *services.TokenManager
	credentials server.CredentialChecker
	history     HistoryStore
	sessions    *registry.SessionStore[*dialogue.Session]
	engine      tasks.MoodEngine
	closers     []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Engine, History and Credentials replace the components normally built from Config.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	Engine      tasks.MoodEngine
	History     HistoryStore
	Credentials server.CredentialChecker
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
		engine:      opts.Engine,
		history:     opts.History,
		credentials: opts.Credentials,
	}
}

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "moodmix",
		Usage:   "Turn a conversation about your mood into a Spotify playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, chatCommand, playlistCommand, resolveCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the config file (or the embedded defaults) and applies environment overrides.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.config != nil {
		return ctx, nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	if errors.Is(err, shared.ErrMissingConfig) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		config, err = shared.DefaultConfig(), nil
	}
	if err != nil {
		return ctx, err
	}

	config.ApplyEnv(nil)
	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// openStorage opens the database and the repositories backed by it.
func (r *Runner) openStorage() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)

	r.tokenRepo = repositories.NewTokenRepository(db)
	if r.history == nil {
		r.history = repositories.NewPlaylistRepository(db)
	}
	return nil
}

// openTokens builds the Spotify token manager and loads any linked account.
func (r *Runner) openTokens(ctx context.Context) error {
	if r.tokens != nil {
		return nil
	}
	if err := r.openStorage(); err != nil {
		return err
	}

	tokens, err := services.NewTokenManager(
		r.config.Credentials.Spotify,
		services.WithTokenStore(r.tokenRepo),
		services.WithTokenLogger(r.child("tokens")),
	)
	if err != nil {
		return err
	}
	if err := tokens.Load(ctx); err != nil {
		return fmt.Errorf("failed to load spotify credentials: %w", err)
	}

	r.tokens = tokens
	if r.credentials == nil {
		r.credentials = tokens
	}
	return nil
}

// Build wires the full mood engine: catalog, chat client, registries, dialogue, resolver and assembler.
func (r *Runner) Build(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}
	if err := r.openTokens(ctx); err != nil {
		return err
	}

	cfg := r.config
	catalog := services.NewSpotifyCatalog(r.tokens, services.WithCatalogLogger(r.child("spotify")))

	chat, err := services.NewChatClient(cfg.Credentials.LLM, services.WithChatLogger(r.child("llm")))
	if err != nil {
		return err
	}

	tracks, err := r.openRegistry(ctx)
	if err != nil {
		return err
	}

	r.sessions = registry.NewSessionStore[*dialogue.Session](cfg.Dialogue.MaxSessions, cfg.Dialogue.SessionTTL.Duration)
	conversations := dialogue.NewEngine(chat, r.sessions,
		dialogue.WithThreshold(cfg.Dialogue.TurnThreshold),
		dialogue.WithLogger(r.child("dialogue")),
	)

	resolver := tasks.NewResolver(catalog, tracks,
		tasks.WithSearchLimit(cfg.Resolver.SearchLimit),
		tasks.WithMarket(cfg.Credentials.Spotify.Market),
		tasks.WithRateLimit(cfg.Resolver.RequestsPerSecond, cfg.Resolver.Burst),
		tasks.WithResolverLogger(r.child("resolver")),
	)

	assembler := tasks.NewAssembler(resolver, catalog,
		tasks.WithNamePrefix(cfg.Playlist.NamePrefix),
		tasks.WithTrackBounds(cfg.Playlist.MinTracks, cfg.Playlist.MaxTracks),
		tasks.WithPublic(cfg.Playlist.Public),
		tasks.WithRecorder(r.history),
		tasks.WithAssemblerLogger(r.child("assembler")),
	)

	r.engine = tasks.NewPlaylistEngine(conversations, resolver, assembler)
	return nil
}

func (r *Runner) openRegistry(ctx context.Context) (registry.TrackRegistry, error) {
	cfg := r.config.Registry
	if cfg.Backend == "redis" {
		reg, err := registry.DialRedisRegistry(ctx, cfg.RedisURL, cfg.KeyPrefix, cfg.TTL.Duration)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, reg.Close)
		r.logger.Debug("using redis track registry", "prefix", cfg.KeyPrefix)
		return reg, nil
	}
	return registry.NewMemoryRegistry(cfg.MaxEntries, cfg.TTL.Duration), nil
}

// requireLinked fails with [shared.ErrReauthRequired] when no Spotify account is linked.
func (r *Runner) requireLinked() error {
	if r.credentials != nil && !r.credentials.Linked() {
		return fmt.Errorf("%w: run `moodmix auth` first", shared.ErrReauthRequired)
	}
	return nil
}

// sweepSessions evicts expired conversations until ctx is done.
func (r *Runner) sweepSessions(ctx context.Context, every time.Duration) {
	if r.sessions == nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sessions.Sweep(); n > 0 {
				r.logger.Debug("expired dialogue sessions", "count", n)
			}
		}
	}
}

// Close releases the database and registry connections. Safe to call more than once.
func (r *Runner) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runner) child(component string) *log.Logger {
	return shared.WithLogger(r.logger, "component", component)
}

// interactive reports whether both ends of the terminal are attached.
func (r *Runner) interactive() bool {
	return isTerminal(r.output) && isTerminal(r.input)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
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

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
