// Package server provides HTTP routing, middleware, and OAuth callback handling for the CLI auth flows.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// Spotify authenticates with the plain authorization code flow via [NewOAuthHandler].
// Tidal requires PKCE; [NewPKCEHandler] carries the code verifier into the token exchange.
//
// # Current Usage
//
// When the user runs an auth command, a temporary HTTP server starts on localhost, handles the callback,
// and shuts down after receiving the OAuth token.
package server
