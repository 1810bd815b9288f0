// Spotify API implementation of [SourceCatalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/crosstune/internal/ratelimit"
	"github.com/desertthunder/crosstune/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// SpotifyKey is the rate limiter service key for Spotify calls.
	SpotifyKey = "spotify"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Images  []SpotifyImage  `json:"images"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       spotifyOwner     `json:"owner"`
	Public      bool             `json:"public"`
	Tracks      spotifyTracksRef `json:"tracks"`
	Images      []SpotifyImage   `json:"images"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// spotifyPage is the common paginated envelope.
type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// SpotifyService implements [SourceCatalog] for the Spotify API.
// Uses [oauth2] for authentication; the oauth2 client refreshes tokens transparently.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	budget     shared.RateLimitConfig
}

// NewSpotifyService creates a new Spotify service with the given credentials
// and sliding window budget. The limiter must be shared with every other
// component that issues Spotify calls.
func NewSpotifyService(creds shared.SpotifyConfig, limiter *ratelimit.Limiter, budget shared.RateLimitConfig) (*SpotifyService, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret required", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    limiter,
		budget:     budget,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the oauth2 config for the callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// SetToken installs an OAuth2 token and switches the HTTP client to an
// auto-refreshing one.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

// Exchange exchanges an authorization code for tokens and installs them.
func (s *SpotifyService) Exchange(ctx context.Context, code string) error {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	s.SetToken(ctx, token)
	return nil
}

// doRequest performs an authenticated, rate limited GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: spotify token not installed", shared.ErrNotAuthenticated)
	}

	call := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, spotifyBaseURL+endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return NewAPIError("spotify "+endpoint, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	throttled := func() error {
		if s.limiter == nil {
			return call()
		}
		return s.limiter.Throttle(ctx, SpotifyKey, s.budget.Limit, time.Duration(s.budget.Period)*time.Second, true, call)
	}

	return WithRetry(ctx, RetryOptions{}, "spotify "+endpoint, throttled)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Playlists retrieves all playlists for the authenticated user, following
// pagination until exhausted.
func (s *SpotifyService) Playlists(ctx context.Context) ([]PlaylistInfo, error) {
	var all []PlaylistInfo
	limit, offset := 50, 0

	for {
		var page spotifyPage[SpotifyPlaylist]
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			all = append(all, playlistInfo(sp))
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// Playlist retrieves a single playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, "/playlists/"+playlistID, &sp); err != nil {
		return nil, err
	}
	info := playlistInfo(sp)
	return &info, nil
}

// PlaylistTracks retrieves the full track list of a playlist, following the
// paginated cursor until exhausted.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]SourceTrack, error) {
	var tracks []SourceTrack
	limit, offset := 100, 0

	for {
		var page spotifyPage[SpotifyPlaylistTrack]
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID == "" {
				// local or removed tracks have no catalog id
				continue
			}
			tracks = append(tracks, sourceTrack(item.Track))
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return tracks, nil
}

func playlistInfo(sp SpotifyPlaylist) PlaylistInfo {
	info := PlaylistInfo{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Owner:       sp.Owner.DisplayName,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}
	if len(sp.Images) > 0 {
		info.ImageURL = sp.Images[0].URL
	}
	return info
}

func sourceTrack(st SpotifyTrack) SourceTrack {
	track := SourceTrack{
		ID:         st.ID,
		Title:      st.Name,
		AlbumTitle: st.Album.Name,
		AlbumID:    st.Album.ID,
		ISRC:       st.ExternalIDs.ISRC,
	}
	for _, artist := range st.Artists {
		track.ArtistNames = append(track.ArtistNames, artist.Name)
	}
	if len(st.Artists) > 0 {
		track.ArtistID = st.Artists[0].ID
	}
	if len(st.Album.Images) > 0 {
		track.AlbumArtURL = st.Album.Images[0].URL
	}
	return track
}
