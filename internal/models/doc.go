// Package models defines domain entities and persistence interfaces for the crosstune playlist sync service.
//
// Persistent entities are database-backed models with full lifecycle management:
//   - [Artist] : Source-catalog artists keyed by Spotify ID
//   - [Album] : Source-catalog albums linked to an artist
//   - [Song] : Source-catalog tracks carrying ISRC and target-catalog resolution state
//   - [Playlist] : Source-catalog playlists with import and sync progress
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
//
// [LookupRecord] is the persisted form of one resolution attempt; a song keeps
// the attempt log of its most recent resolution run only.
package models
