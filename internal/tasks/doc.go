// Package tasks orchestrates the playlist sync pipeline with real-time progress reporting.
//
// # Core Operations
//
// Three coordinators drive the pipeline:
//
//  1. [ImportCoordinator] : Spotify playlist import
//     - Fetches playlist metadata and tracks from the source catalog
//     - Persists artists, albums, and songs with find-or-create semantics
//     - Enforces the import lifecycle (pending → in_progress → completed|failed)
//     - Re-imports converge: membership has set semantics and missing ISRCs are patched in
//
//  2. [LookupCoordinator] : target-catalog track resolution
//     - Runs the matching cascade for every unresolved song of a playlist
//     - Uses a paced worker pool so concurrent lookups respect API budgets
//     - Replaces each song's attempt log with the log of the latest run
//
//  3. [SyncCoordinator] : Tidal playlist creation
//     - Creates the target playlist exactly once per source playlist
//     - Adds every resolved track, batched by the service client
//     - Skips playlists that are already synced
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
