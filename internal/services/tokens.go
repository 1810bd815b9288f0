package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/crosstune/internal/shared"
	"golang.org/x/oauth2"
)

// StaticToken is a [TokenProvider] returning a fixed access token.
// Useful for short-lived CLI sessions and tests.
type StaticToken string

func (s StaticToken) CurrentToken(ctx context.Context, serviceKey string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: no token for %s", shared.ErrNotAuthenticated, serviceKey)
	}
	return string(s), nil
}

// OAuthTokenProvider adapts an [oauth2.TokenSource] to [TokenProvider].
// The token source refreshes expired tokens transparently.
type OAuthTokenProvider struct {
	source oauth2.TokenSource
}

// NewOAuthTokenProvider wraps config+token in a reusable, auto-refreshing source.
func NewOAuthTokenProvider(ctx context.Context, config *oauth2.Config, token *oauth2.Token) *OAuthTokenProvider {
	return &OAuthTokenProvider{source: config.TokenSource(ctx, token)}
}

func (p *OAuthTokenProvider) CurrentToken(ctx context.Context, serviceKey string) (string, error) {
	token, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrRefreshFailed, serviceKey, err)
	}
	return token.AccessToken, nil
}

// ClientCredentials is a [TokenProvider] using the OAuth2 client credentials
// grant, for catalog searches that need no user context. Tokens are cached
// until shortly before expiry.
type ClientCredentials struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewClientCredentials creates a provider for the Tidal client credentials flow.
func NewClientCredentials(creds shared.TidalConfig) *ClientCredentials {
	return &ClientCredentials{
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		tokenURL:     tidalAuthURL + "/token",
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTokenURL overrides the token endpoint, used by tests.
func (c *ClientCredentials) SetTokenURL(u string) { c.tokenURL = u }

func (c *ClientCredentials) CurrentToken(ctx context.Context, serviceKey string) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("%w: %s client credentials not configured", shared.ErrMissingCredentials, serviceKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewAPIError("token exchange", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", shared.ErrAuthFailed)
	}

	c.token = payload.AccessToken
	// refresh a minute early to avoid using a token at the expiry boundary
	c.expiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}
