package matching

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
)

// Catalog is the slice of [services.CatalogClient] the resolver needs.
type Catalog interface {
	SearchByCode(ctx context.Context, code string) (*services.CatalogMatch, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]services.CatalogMatch, error)
	SearchAlbums(ctx context.Context, query string, limit int) ([]services.AlbumSummary, error)
	AlbumTracks(ctx context.Context, albumID string) ([]services.CatalogMatch, error)
}

// Outcome is the recorded result of one strategy attempt.
type Outcome string

const (
	OutcomeMatch   Outcome = "match"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeError   Outcome = "error"
)

// Attempt is one entry of the resolution audit trail.
type Attempt struct {
	Timestamp time.Time
	Strategy  StrategyType
	Query     string
	Outcome   Outcome
	Err       string // set only for OutcomeError
}

// Resolution is the result of one resolution run: a match or nothing, plus
// the complete attempt log. The log is the sole audit trail; no raw API
// payloads are retained beyond the run.
type Resolution struct {
	Match    *services.CatalogMatch
	Attempts []Attempt
}

// Matched reports whether the run terminated with a match.
func (r Resolution) Matched() bool {
	return r.Match != nil
}

// Resolver locates a source track's counterpart in the target catalog.
//
// A run walks three phases: exact ISRC lookup, album-assisted lookup, then
// the text-search strategy cascade. A transport or auth failure during a
// single strategy aborts only that strategy; the cascade continues.
type Resolver struct {
	catalog     Catalog
	logger      *log.Logger
	searchLimit int
	albumLimit  int
	now         func() time.Time
}

// NewResolver creates a Resolver over the given catalog. The logger may be nil.
func NewResolver(catalog Catalog, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		catalog:     catalog,
		logger:      logger,
		searchLimit: 20,
		albumLimit:  10,
		now:         time.Now,
	}
}

// Resolve runs one complete resolution for track. It always returns a
// Resolution; absence of a match is a normal outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, track services.SourceTrack) Resolution {
	run := &resolutionRun{resolver: r}
	title, artist, album := track.Title, track.Artist(), track.AlbumTitle

	if track.ISRC != "" {
		if match := run.tryISRC(ctx, track.ISRC); match != nil {
			return run.matched(match)
		}
	}

	if album != "" {
		if match := run.tryAlbum(ctx, title, artist, album); match != nil {
			return run.matched(match)
		}
	}

	for _, strategy := range Plan(title, artist, album) {
		if ctx.Err() != nil {
			run.record(strategy.Type, strategy.Query, OutcomeError, ctx.Err().Error())
			break
		}
		if match := run.tryStrategy(ctx, strategy, title, artist, album); match != nil {
			return run.matched(match)
		}
	}

	r.logger.Warn("no match found", "title", title, "artist", artist)
	return Resolution{Attempts: run.attempts}
}

// resolutionRun accumulates the attempt log for a single Resolve call.
type resolutionRun struct {
	resolver *Resolver
	attempts []Attempt
}

func (run *resolutionRun) record(strategy StrategyType, query string, outcome Outcome, errMsg string) {
	run.attempts = append(run.attempts, Attempt{
		Timestamp: run.resolver.now(),
		Strategy:  strategy,
		Query:     query,
		Outcome:   outcome,
		Err:       errMsg,
	})
}

func (run *resolutionRun) matched(match *services.CatalogMatch) Resolution {
	return Resolution{Match: match, Attempts: run.attempts}
}

// tryISRC performs the exact-code lookup. A hit is accepted unconditionally:
// the ISRC is the authoritative identifier.
func (run *resolutionRun) tryISRC(ctx context.Context, isrc string) *services.CatalogMatch {
	r := run.resolver

	match, err := r.catalog.SearchByCode(ctx, isrc)
	if err != nil {
		r.logger.Warn("isrc search failed", "isrc", isrc, "err", err)
		run.record(StrategyISRC, isrc, OutcomeError, err.Error())
		return nil
	}

	if match == nil {
		run.record(StrategyISRC, isrc, OutcomeNoMatch, "")
		return nil
	}

	run.record(StrategyISRC, isrc, OutcomeMatch, "")
	return match
}

// tryAlbum resolves the best album match, then picks the best-scoring track
// title from that album's track list.
func (run *resolutionRun) tryAlbum(ctx context.Context, title, artist, album string) *services.CatalogMatch {
	r := run.resolver
	query := collapse(album + " " + artist)

	albums, err := r.catalog.SearchAlbums(ctx, query, r.albumLimit)
	if err != nil {
		r.logger.Warn("album search failed", "query", query, "err", err)
		run.record(StrategyAlbumLookup, query, OutcomeError, err.Error())
		return nil
	}

	best := BestAlbumMatch(albums, album, artist)
	if best == nil {
		run.record(StrategyAlbumLookup, query, OutcomeNoMatch, "")
		return nil
	}

	tracks, err := r.catalog.AlbumTracks(ctx, best.ID)
	if err != nil {
		r.logger.Warn("album tracks fetch failed", "album", best.ID, "err", err)
		run.record(StrategyAlbumLookup, query, OutcomeError, err.Error())
		return nil
	}

	match := BestTrackInAlbum(tracks, title)
	if match == nil {
		run.record(StrategyAlbumLookup, query, OutcomeNoMatch, "")
		return nil
	}

	r.logger.Info("album lookup match", "title", match.Title, "album", best.Title)
	run.record(StrategyAlbumLookup, query, OutcomeMatch, "")
	return match
}

// tryStrategy issues one text search and scores every result, accepting the
// best at or above [MatchThreshold].
func (run *resolutionRun) tryStrategy(ctx context.Context, strategy Strategy, title, artist, album string) *services.CatalogMatch {
	r := run.resolver

	results, err := r.catalog.SearchTracks(ctx, strategy.Query, r.searchLimit)
	if err != nil {
		r.logger.Warn("strategy search failed", "strategy", strategy.Type, "query", strategy.Query, "err", err)
		run.record(strategy.Type, strategy.Query, OutcomeError, err.Error())
		return nil
	}

	var best *services.CatalogMatch
	bestScore := 0.0
	for i := range results {
		if score := ScoreTrack(results[i], title, artist, album); score > bestScore {
			best = &results[i]
			bestScore = score
		}
	}

	if best == nil || bestScore < MatchThreshold {
		run.record(strategy.Type, strategy.Query, OutcomeNoMatch, "")
		return nil
	}

	r.logger.Info("match found", "strategy", strategy.Type, "title", best.Title, "score", bestScore)
	run.record(strategy.Type, strategy.Query, OutcomeMatch, "")
	return best
}
