package shared

import "errors"

// Sentinel errors shared across packages. Callers wrap these with fmt.Errorf
// and %w to attach context; checks go through errors.Is.
var (
	ErrNotImplemented = errors.New("not implemented")

	// Credentials and auth
	ErrMissingCredentials = errors.New("missing credentials")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrTimeout            = errors.New("operation timed out")

	// Outbound API calls
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrPlaylistNotFound   = errors.New("playlist not found")
	ErrRateLimited        = errors.New("rate limit exceeded")

	// Pipeline state
	ErrImportInProgress = errors.New("import already in progress")

	// Input validation
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
)
