// Package services defines the [SourceCatalog] and [CatalogClient] interfaces
// and implements them for Spotify (source) and Tidal (target).
//
// # Interface Boundary
//
// The resolution engine and the coordinators only see these interfaces; the
// concrete REST shapes stay inside this package.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 with automatic token refresh and follows
// paginated endpoints until exhausted.
//
// # Tidal Implementation
//
// [TidalService] speaks the Tidal OpenAPI v2 (JSON:API envelopes). Tokens come
// from a [TokenProvider]: a user token source with transparent refresh, or the
// client credentials grant for searches without a user.
//
// # Rate Limiting and Retries
//
// Every outbound call passes through the shared sliding window
// [ratelimit.Limiter] for its service key, and transient failures (429, 5xx,
// timeouts, connection errors) are retried with exponential backoff via
// [WithRetry]. Authentication and not-found failures propagate immediately.
//
// # Error Taxonomy
//
// Failed responses become [APIError] values classified by status family
// (authentication, not found, rate limit, server, generic) which also unwrap
// to the shared sentinel errors for errors.Is checks.
package services
