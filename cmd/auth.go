package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/crosstune/internal/server"
	"github.com/desertthunder/crosstune/internal/services"
	"github.com/desertthunder/crosstune/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthSpotify performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens a browser for user authorization, and
// saves the exchanged tokens to the config file.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds, r.limiter, r.config.RateLimits.Spotify)
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	state := shared.GenerateID()
	authURL := svc.AuthURL(state)
	handler := server.NewOAuthHandler(svc.OAuthConfig(), state)

	token, err := r.doOAuth(authURL, handler, "Spotify")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	svc.SetToken(ctx, token)
	r.spotify = svc

	r.writePlainln("✓ Spotify authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: crosstune playlists\n")

	return nil
}

// AuthTidal performs the OAuth2 authorization code flow with PKCE for Tidal.
func (r *Runner) AuthTidal(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Tidal
	if creds.ClientID == "" {
		return fmt.Errorf("%w: Tidal client_id must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	oauthConfig := services.TidalOAuthConfig(creds)
	state := shared.GenerateID()
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	handler := server.NewPKCEHandler(oauthConfig, state, verifier)

	token, err := r.doOAuth(authURL, handler, "Tidal")
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Tidal.Update(token); err != nil {
		return fmt.Errorf("failed to update tidal configuration: %w", err)
	}
	if r.configPath != "" {
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	r.tidal = nil // rebuilt with the user token on next use

	r.writePlainln("✓ Tidal authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: crosstune sync <playlist-id>\n")

	return nil
}

// AuthStatus reports which services have credentials and saved tokens.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Authentication Status")

	spotify := r.config.Credentials.Spotify
	if spotify.ClientID == "" {
		r.writePlain("Spotify: ✗ no credentials configured\n")
	} else if spotify.Token() == nil {
		r.writePlain("Spotify: ⚠ credentials set, not authorized (run 'crosstune auth spotify')\n")
	} else {
		r.writePlain("Spotify: ✓ authorized\n")
	}

	tidal := r.config.Credentials.Tidal
	if tidal.ClientID == "" {
		r.writePlain("Tidal:   ✗ no credentials configured\n")
	} else if tidal.Token() == nil {
		r.writePlain("Tidal:   ⚠ credentials set, searches only (run 'crosstune auth tidal' to enable sync)\n")
	} else {
		r.writePlain("Tidal:   ✓ authorized\n")
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(authURL string, handler *server.OAuthHandler, prefix string) (*oauth2.Token, error) {
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for %s authorization...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
