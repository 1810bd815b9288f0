// package services defines the catalog interfaces for the source (Spotify)
// and target (Tidal) music services, plus the data shapes exchanged with them.
package services

import (
	"context"
)

// SourceCatalog is the read side of a sync: the service playlists are imported from.
type SourceCatalog interface {
	// Name returns the service name (e.g., "Spotify").
	Name() string

	// Playlists retrieves all playlists for the authenticated user.
	Playlists(ctx context.Context) ([]PlaylistInfo, error)

	// Playlist retrieves a single playlist by its source-catalog id.
	Playlist(ctx context.Context, playlistID string) (*PlaylistInfo, error)

	// PlaylistTracks retrieves the full track list of a playlist, following
	// pagination until exhausted.
	PlaylistTracks(ctx context.Context, playlistID string) ([]SourceTrack, error)
}

// CatalogClient is the write/search side of a sync: the target service tracks
// are resolved against and playlists are mirrored into.
type CatalogClient interface {
	// Name returns the service name (e.g., "Tidal").
	Name() string

	// SearchByCode performs an exact-identifier lookup (ISRC).
	// Returns nil with no error when the code has no hit.
	SearchByCode(ctx context.Context, code string) (*CatalogMatch, error)

	// SearchTracks performs a free-text track search.
	SearchTracks(ctx context.Context, query string, limit int) ([]CatalogMatch, error)

	// SearchAlbums performs a free-text album search.
	SearchAlbums(ctx context.Context, query string, limit int) ([]AlbumSummary, error)

	// AlbumTracks retrieves the track list of an album by target-catalog id.
	AlbumTracks(ctx context.Context, albumID string) ([]CatalogMatch, error)

	// CreatePlaylist creates a playlist on the target catalog.
	CreatePlaylist(ctx context.Context, name, description string) (*CreatedPlaylist, error)

	// AddTracks inserts target track ids into a playlist, batching as needed.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// TokenProvider supplies a valid access token for a service key.
//
// Refresh is the provider's responsibility; callers treat the returned token
// as currently valid. A provider fails with an authentication error when no
// valid or refreshable credential exists.
type TokenProvider interface {
	CurrentToken(ctx context.Context, serviceKey string) (string, error)
}

// SourceTrack is an immutable snapshot of a track fetched from the source catalog.
type SourceTrack struct {
	ID          string   // source-catalog track id (unique)
	Title       string
	ArtistNames []string // ordered, primary artist first
	ArtistID    string   // source-catalog id of the primary artist
	AlbumTitle  string
	AlbumID     string // source-catalog album id
	AlbumArtURL string
	ISRC        string
}

// Artist returns the joined artist field as the source displays it.
func (t SourceTrack) Artist() string {
	return joinNames(t.ArtistNames)
}

// CatalogMatch is a candidate (or resolved) track in the target catalog.
type CatalogMatch struct {
	TargetID        string
	Title           string
	ArtistNames     []string
	AlbumTitle      string
	DurationSeconds int
	ISRC            string
}

// Artist returns the joined artist field of the candidate.
func (m CatalogMatch) Artist() string {
	return joinNames(m.ArtistNames)
}

// AlbumSummary is an album search result from the target catalog.
type AlbumSummary struct {
	ID          string
	Title       string
	ArtistNames []string
}

// Artist returns the joined artist field of the album.
func (a AlbumSummary) Artist() string {
	return joinNames(a.ArtistNames)
}

// PlaylistInfo describes a playlist on either catalog.
type PlaylistInfo struct {
	ID          string
	Name        string
	Description string
	Owner       string
	ImageURL    string
	TrackCount  int
	Public      bool
}

// CreatedPlaylist is the handle returned by CatalogClient.CreatePlaylist.
type CreatedPlaylist struct {
	ID string
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
