// package ui implements the terminal interface for browsing imported
// playlists and pushing them to Tidal.
//
// The interface is a bubbletea program with five views. The playlist list
// shows every imported playlist with its import status and sync state. The
// detail view lists a playlist's tracks with their resolution outcome.
// From there the user can confirm a sync, watch its progress, and review
// the result.
//
// All playlist and track data comes from the local database, so the
// browser works offline. Only the sync step talks to Tidal.
package ui
