// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ArtistRepository] : Artist persistence with find-or-create by Spotify ID
//   - [AlbumRepository] : Album persistence linked to artists
//   - [SongRepository] : Track persistence carrying ISRC, resolution state, and the lookup attempt log
//   - [PlaylistRepository] : Playlist persistence with import lifecycle enforcement and track membership
//
// Sequence numbers provide stable, human-readable ordering (e.g., song #42, playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
