// Tidal API implementation of [CatalogClient]
//
// Uses the official Tidal OpenAPI v2 (JSON:API shapes).
// Documentation: https://developer.tidal.com/documentation/api/api-overview
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/ratelimit"
	"github.com/desertthunder/crosstune/internal/shared"
	"golang.org/x/oauth2"
)

const (
	tidalAuthURL  = "https://auth.tidal.com/v1/oauth2"
	tidalBaseURL  = "https://openapi.tidal.com"
	tidalCountry  = "US"
	tidalJSONAPI  = "application/vnd.api+json"

	// TidalKey is the rate limiter service key for Tidal calls.
	TidalKey = "tidal"

	// tidalAddTracksBatch caps resource identifiers per playlist items call.
	tidalAddTracksBatch = 100
)

// Tidal JSON:API shapes. Attributes carry the scalar fields, relationships
// carry nested resources.

type tidalArtistRef struct {
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

type tidalAlbumRef struct {
	Attributes struct {
		Title string `json:"title"`
	} `json:"attributes"`
}

type tidalTrackResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Title    string `json:"title"`
		ISRC     string `json:"isrc"`
		Duration int    `json:"duration"`
	} `json:"attributes"`
	Relationships struct {
		Artists struct {
			Data []tidalArtistRef `json:"data"`
		} `json:"artists"`
		Album struct {
			Data *tidalAlbumRef `json:"data"`
		} `json:"album"`
	} `json:"relationships"`
}

type tidalAlbumResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Title string `json:"title"`
	} `json:"attributes"`
	Relationships struct {
		Artists struct {
			Data []tidalArtistRef `json:"data"`
		} `json:"artists"`
	} `json:"relationships"`
}

type tidalSearchResults struct {
	Data struct {
		Tracks []tidalTrackResource `json:"tracks"`
		Albums []tidalAlbumResource `json:"albums"`
	} `json:"data"`
}

type tidalTrackList struct {
	Data []tidalTrackResource `json:"data"`
}

type tidalPlaylistResource struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Title string `json:"title"`
		} `json:"attributes"`
	} `json:"data"`
}

// TidalService implements [CatalogClient] for the Tidal OpenAPI.
type TidalService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *ratelimit.Limiter
	budget     shared.RateLimitConfig
	logger     *log.Logger
	batchSize  int
}

// NewTidalService creates a Tidal client. The token provider supplies user or
// client-credentials tokens; the limiter must be shared with every other
// component that issues Tidal calls.
func NewTidalService(tokens TokenProvider, limiter *ratelimit.Limiter, budget shared.RateLimitConfig, logger *log.Logger) *TidalService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TidalService{
		baseURL:    tidalBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		limiter:    limiter,
		budget:     budget,
		logger:     logger,
		batchSize:  tidalAddTracksBatch,
	}
}

// SetBaseURL overrides the API base URL, used by tests.
func (t *TidalService) SetBaseURL(u string) { t.baseURL = u }

// SetBatchSize overrides the add-tracks batch cap.
func (t *TidalService) SetBatchSize(n int) {
	if n > 0 {
		t.batchSize = n
	}
}

func (t *TidalService) Name() string {
	return "Tidal"
}

// TidalOAuthConfig builds the oauth2 config for the Tidal user flow (PKCE).
func TidalOAuthConfig(creds shared.TidalConfig) *oauth2.Config {
	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"user.read", "playlists.read", "playlists.write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  tidalAuthURL + "/authorize",
			TokenURL: tidalAuthURL + "/token",
		},
	}
}

// doRequest performs a token-authenticated, rate limited, retried call.
func (t *TidalService) doRequest(ctx context.Context, method, endpoint string, body []byte, result any) error {
	call := func() error {
		token, err := t.tokens.CurrentToken(ctx, TidalKey)
		if err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		var reader *bytes.Reader
		var req *http.Request
		if body != nil {
			reader = bytes.NewReader(body)
			req, err = http.NewRequestWithContext(reqCtx, method, t.baseURL+endpoint, reader)
		} else {
			req, err = http.NewRequestWithContext(reqCtx, method, t.baseURL+endpoint, nil)
		}
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", tidalJSONAPI)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return NewAPIError("tidal "+endpoint, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	throttled := func() error {
		if t.limiter == nil {
			return call()
		}
		return t.limiter.Throttle(ctx, TidalKey, t.budget.Limit, time.Duration(t.budget.Period)*time.Second, true, call)
	}

	return WithRetry(ctx, RetryOptions{Logger: t.logger}, "tidal "+endpoint, throttled)
}

// SearchByCode performs an exact ISRC lookup, returning the first hit or nil.
func (t *TidalService) SearchByCode(ctx context.Context, code string) (*CatalogMatch, error) {
	endpoint := fmt.Sprintf("/v2/tracks?filter[isrc]=%s&countryCode=%s", url.QueryEscape(code), tidalCountry)

	var list tidalTrackList
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return nil, err
	}

	if len(list.Data) == 0 {
		return nil, nil
	}

	match := catalogMatch(list.Data[0])
	return &match, nil
}

// SearchTracks performs a free-text search of the track catalog.
func (t *TidalService) SearchTracks(ctx context.Context, query string, limit int) ([]CatalogMatch, error) {
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("/v2/searchresults/catalog?query=%s&type=tracks&limit=%d&countryCode=%s",
		url.QueryEscape(query), limit, tidalCountry)

	var results tidalSearchResults
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	matches := make([]CatalogMatch, 0, len(results.Data.Tracks))
	for _, track := range results.Data.Tracks {
		matches = append(matches, catalogMatch(track))
	}
	return matches, nil
}

// SearchAlbums performs a free-text search of the album catalog.
func (t *TidalService) SearchAlbums(ctx context.Context, query string, limit int) ([]AlbumSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	endpoint := fmt.Sprintf("/v2/searchresults/catalog?query=%s&type=albums&limit=%d&countryCode=%s",
		url.QueryEscape(query), limit, tidalCountry)

	var results tidalSearchResults
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	albums := make([]AlbumSummary, 0, len(results.Data.Albums))
	for _, album := range results.Data.Albums {
		summary := AlbumSummary{ID: album.ID, Title: album.Attributes.Title}
		for _, artist := range album.Relationships.Artists.Data {
			summary.ArtistNames = append(summary.ArtistNames, artist.Attributes.Name)
		}
		albums = append(albums, summary)
	}
	return albums, nil
}

// AlbumTracks retrieves the items of an album.
func (t *TidalService) AlbumTracks(ctx context.Context, albumID string) ([]CatalogMatch, error) {
	endpoint := fmt.Sprintf("/v2/albums/%s/items?countryCode=%s&limit=100", url.PathEscape(albumID), tidalCountry)

	var list tidalTrackList
	if err := t.doRequest(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return nil, err
	}

	matches := make([]CatalogMatch, 0, len(list.Data))
	for _, track := range list.Data {
		matches = append(matches, catalogMatch(track))
	}
	return matches, nil
}

// CreatePlaylist creates a private playlist on Tidal.
func (t *TidalService) CreatePlaylist(ctx context.Context, name, description string) (*CreatedPlaylist, error) {
	payload := map[string]any{
		"data": map[string]any{
			"type": "playlists",
			"attributes": map[string]any{
				"title":       name,
				"description": description,
				"public":      false,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode playlist payload: %w", err)
	}

	var created tidalPlaylistResource
	if err := t.doRequest(ctx, http.MethodPost, "/v2/playlists", body, &created); err != nil {
		return nil, err
	}

	if created.Data.ID == "" {
		return nil, fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}
	return &CreatedPlaylist{ID: created.Data.ID}, nil
}

// AddTracks inserts track ids into a playlist in batches. A batch failure
// aborts the remaining batches.
func (t *TidalService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	for start := 0; start < len(trackIDs); start += t.batchSize {
		end := start + t.batchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}

		items := make([]map[string]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			items = append(items, map[string]string{"type": "tracks", "id": id})
		}

		body, err := json.Marshal(map[string]any{"data": items})
		if err != nil {
			return fmt.Errorf("failed to encode track batch: %w", err)
		}

		endpoint := fmt.Sprintf("/v2/playlists/%s/items", url.PathEscape(playlistID))
		if err := t.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}

	return nil
}

func catalogMatch(track tidalTrackResource) CatalogMatch {
	match := CatalogMatch{
		TargetID:        track.ID,
		Title:           track.Attributes.Title,
		DurationSeconds: track.Attributes.Duration,
		ISRC:            track.Attributes.ISRC,
	}
	for _, artist := range track.Relationships.Artists.Data {
		match.ArtistNames = append(match.ArtistNames, artist.Attributes.Name)
	}
	if track.Relationships.Album.Data != nil {
		match.AlbumTitle = track.Relationships.Album.Data.Attributes.Title
	}
	return match
}
