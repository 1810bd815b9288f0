package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/matching"
	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/repositories"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
	"golang.org/x/time/rate"
)

// LookupOpts contains configuration for a resolution run.
type LookupOpts struct {
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Lookups started per second across workers (default: 5)
}

// LookupCoordinator resolves a playlist's songs against the target catalog.
//
// Songs are resolved by a paced worker pool; the pool's limiter spaces out
// lookup starts so a burst of workers cannot exceed the API budget. Each
// song's lookup trail is replaced by the trail of its latest run. A song already
// being resolved by another run is skipped, not resolved twice.
type LookupCoordinator struct {
	resolver  TrackResolver
	playlists *repositories.PlaylistRepository
	songs     *repositories.SongRepository
	artists   *repositories.ArtistRepository
	albums    *repositories.AlbumRepository
	logger    *log.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewLookupCoordinator wires a LookupCoordinator over the given resolver and
// repositories. The logger may be nil.
func NewLookupCoordinator(
	resolver TrackResolver,
	playlists *repositories.PlaylistRepository,
	songs *repositories.SongRepository,
	artists *repositories.ArtistRepository,
	albums *repositories.AlbumRepository,
	logger *log.Logger,
) *LookupCoordinator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LookupCoordinator{
		resolver:  resolver,
		playlists: playlists,
		songs:     songs,
		artists:   artists,
		albums:    albums,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// Lookup resolves every unresolved song of the playlist with the given
// source-catalog id.
func (c *LookupCoordinator) Lookup(ctx context.Context, spotifyID string, opts LookupOpts, progress chan<- ProgressUpdate) (*LookupResult, error) {
	if c.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	playlist, err := c.playlists.GetBySpotifyID(spotifyID)
	if err != nil {
		return nil, err
	}
	if playlist.ImportStatus() != models.ImportCompleted {
		return nil, fmt.Errorf("playlist %s is %s, import it before lookup", spotifyID, playlist.ImportStatus())
	}

	pending, err := c.songs.ListPendingLookup(playlist.ID())
	if err != nil {
		return nil, err
	}

	result := &LookupResult{PlaylistID: playlist.ID(), Total: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	sendProgress(progress, resolveStartUpdate(len(pending)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan *models.Song, len(pending))
	outcomes := make(chan lookupOutcome, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go c.resolveWorker(ctx, &wg, limiter, jobs, outcomes)
	}

	queued := 0
	for _, song := range pending {
		if !c.claim(song.ID()) {
			c.logger.Warn("lookup already in flight", "song", song.Name())
			continue
		}
		jobs <- song
		queued++
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	step := 0
	for outcome := range outcomes {
		step++
		c.release(outcome.song.ID())

		switch {
		case outcome.err != nil:
			result.Failed++
			c.logger.Error("lookup failed", "song", outcome.song.Name(), "err", outcome.err)
		case outcome.matched:
			result.Matched++
		default:
			result.Unmatched++
		}

		sendProgress(progress, resolveTrackUpdate(step, queued, outcome.song, outcome.matched))
	}

	result.Total = queued
	return result, ctx.Err()
}

type lookupOutcome struct {
	song    *models.Song
	matched bool
	err     error
}

// resolveWorker drains the jobs channel, pacing resolution starts with the
// shared limiter.
func (c *LookupCoordinator) resolveWorker(ctx context.Context, wg *sync.WaitGroup, limiter *rate.Limiter, jobs <-chan *models.Song, outcomes chan<- lookupOutcome) {
	defer wg.Done()

	for song := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			outcomes <- lookupOutcome{song: song, err: err}
			continue
		}

		matched, err := c.resolveSong(ctx, song)
		outcomes <- lookupOutcome{song: song, matched: matched, err: err}
	}
}

// resolveSong runs one resolution and persists the outcome. The trail is
// written even when nothing matched; it is the audit record of the run.
func (c *LookupCoordinator) resolveSong(ctx context.Context, song *models.Song) (bool, error) {
	track := c.sourceTrack(song)
	resolution := c.resolver.Resolve(ctx, track)

	song.SetLookupTrail(&models.LookupTrail{
		Timestamp:      time.Now(),
		SearchedTitle:  track.Title,
		SearchedArtist: track.Artist(),
		Strategies:     convertAttempts(resolution.Attempts),
	})
	if resolution.Matched() {
		song.ApplyMatch(resolution.Match.TargetID, resolution.Match.Title, resolution.Match.Artist())
	}

	if err := c.songs.Update(song); err != nil {
		return false, err
	}
	return resolution.Matched(), nil
}

// sourceTrack rebuilds the resolver's input from the persisted song and its
// relations.
func (c *LookupCoordinator) sourceTrack(song *models.Song) services.SourceTrack {
	track := services.SourceTrack{
		ID:    song.SpotifyID(),
		Title: song.Name(),
		ISRC:  song.ISRC(),
	}

	if artist, err := c.artists.Get(song.ArtistID()); err == nil {
		track.ArtistNames = []string{artist.Name()}
		track.ArtistID = artist.SpotifyID()
	}

	if song.AlbumID() != "" {
		if album, err := c.albums.Get(song.AlbumID()); err == nil {
			track.AlbumTitle = album.Name()
			track.AlbumID = album.SpotifyID()
		}
	}

	return track
}

func (c *LookupCoordinator) claim(songID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[songID]; busy {
		return false
	}
	c.inFlight[songID] = struct{}{}
	return true
}

func (c *LookupCoordinator) release(songID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, songID)
}

func convertAttempts(attempts []matching.Attempt) []models.LookupRecord {
	records := make([]models.LookupRecord, len(attempts))
	for i, a := range attempts {
		records[i] = models.LookupRecord{
			Timestamp: a.Timestamp,
			Strategy:  string(a.Strategy),
			Query:     a.Query,
			Outcome:   models.LookupOutcome(a.Outcome),
			Error:     a.Err,
		}
	}
	return records
}
