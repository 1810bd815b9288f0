package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/ratelimit"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	tidal      *services.TidalService
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    *services.SpotifyService
	Tidal      *services.TidalService
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
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		tidal:      opts.Tidal,
		limiter:    ratelimit.NewLimiter(opts.Logger),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, importCommand, lookupCommand, syncCommand, statusCommand, reportCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// repoSet bundles the repositories backed by one database handle.
type repoSet struct {
	db        *sql.DB
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
	artists   *repositories.ArtistRepository
	albums    *repositories.AlbumRepository
}

func (s *repoSet) Close() error { return s.db.Close() }

// openRepos opens the configured database and constructs the repository set.
// The caller owns the handle and must Close it.
func (r *Runner) openRepos() (*repoSet, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return &repoSet{
		db:        db,
		playlists: repositories.NewPlaylistRepository(db),
		songs:     repositories.NewSongRepository(db),
		artists:   repositories.NewArtistRepository(db),
		albums:    repositories.NewAlbumRepository(db),
	}, nil
}

// sourceService returns the Spotify service, constructing and authenticating
// it from saved config tokens on first use.
func (r *Runner) sourceService() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify, r.limiter, r.config.RateLimits.Spotify)
	if err != nil {
		return nil, err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'crosstune auth spotify' first", shared.ErrNotAuthenticated)
	}
	svc.SetToken(context.Background(), token)

	r.spotify = svc
	return svc, nil
}

// targetService returns the Tidal service. A saved user token takes priority;
// without one the client credentials grant covers catalog searches but
// playlist writes will fail with an authentication error.
func (r *Runner) targetService() (*services.TidalService, error) {
	if r.tidal != nil {
		return r.tidal, nil
	}

	creds := r.config.Credentials.Tidal
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: tidal client_id and client_secret required", shared.ErrMissingCredentials)
	}

	var tokens services.TokenProvider
	if token := creds.Token(); token != nil {
		tokens = services.NewOAuthTokenProvider(context.Background(), services.TidalOAuthConfig(creds), token)
	} else {
		tokens = services.NewClientCredentials(creds)
	}

	r.tidal = services.NewTidalService(tokens, r.limiter, r.config.RateLimits.Tidal, r.logger)
	return r.tidal, nil
}

// saveTokens persists an OAuth2 token into the Spotify section of the config
// file. With an empty configPath the update stays in memory.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// SetLogger swaps the runner's logger, used when the TUI takes over the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
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
