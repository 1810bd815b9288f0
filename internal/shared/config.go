package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	RateLimits  RateLimitsConfig  `toml:"ratelimits"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Tidal   TidalConfig   `toml:"tidal"`
}

// SpotifyConfig contains Spotify API credentials and saved OAuth tokens.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	TokenExpiry  string `toml:"token_expiry,omitempty"`
}

// Update stores an OAuth2 token in the config so it can be saved to disk.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	return updateTokens(token, &s.AccessToken, &s.RefreshToken, &s.TokenExpiry)
}

// Token reconstructs the saved OAuth2 token, or nil when none is stored.
func (s *SpotifyConfig) Token() *oauth2.Token {
	return restoreToken(s.AccessToken, s.RefreshToken, s.TokenExpiry)
}

// TidalConfig contains Tidal API credentials and saved OAuth tokens.
type TidalConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	TokenExpiry  string `toml:"token_expiry,omitempty"`
}

// Update stores an OAuth2 token in the config so it can be saved to disk.
func (t *TidalConfig) Update(token *oauth2.Token) error {
	return updateTokens(token, &t.AccessToken, &t.RefreshToken, &t.TokenExpiry)
}

// Token reconstructs the saved OAuth2 token, or nil when none is stored.
func (t *TidalConfig) Token() *oauth2.Token {
	return restoreToken(t.AccessToken, t.RefreshToken, t.TokenExpiry)
}

func updateTokens(token *oauth2.Token, access, refresh, expiry *string) error {
	if token == nil {
		return fmt.Errorf("token cannot be nil: %w", ErrInvalidInput)
	}
	*access = token.AccessToken
	if token.RefreshToken != "" {
		*refresh = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		*expiry = token.Expiry.Format(time.RFC3339)
	}
	return nil
}

func restoreToken(access, refresh, expiry string) *oauth2.Token {
	if access == "" && refresh == "" {
		return nil
	}
	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh}
	if expiry != "" {
		if t, err := time.Parse(time.RFC3339, expiry); err == nil {
			token.Expiry = t
		}
	}
	return token
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// RateLimitsConfig contains per-service sliding window budgets.
type RateLimitsConfig struct {
	Spotify RateLimitConfig `toml:"spotify"`
	Tidal   RateLimitConfig `toml:"tidal"`
}

// RateLimitConfig is a request budget: at most Limit calls per Period seconds.
type RateLimitConfig struct {
	Limit  int `toml:"limit"`
	Period int `toml:"period"`
}

// SyncConfig contains tuning for import/lookup/sync passes.
type SyncConfig struct {
	LookupWorkers  int     `toml:"lookup_workers"`
	LookupRate     float64 `toml:"lookup_rate"`
	AddTracksBatch int     `toml:"add_tracks_batch"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
