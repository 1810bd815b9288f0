package models

import (
	"fmt"
	"time"
)

// LookupOutcome is the persisted result of one resolution attempt.
type LookupOutcome string

const (
	LookupMatch   LookupOutcome = "match"
	LookupNoMatch LookupOutcome = "no_match"
	LookupError   LookupOutcome = "error"
)

// LookupRecord is one entry of a song's resolution attempt log.
type LookupRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Strategy  string        `json:"strategy"`
	Query     string        `json:"query"`
	Outcome   LookupOutcome `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// LookupTrail is the audit record of a song's latest resolution run: what was
// searched, when the run started, and every strategy attempted. Each run
// replaces the previous trail. Serialization to the songs.lookup_log column
// happens in the repository.
type LookupTrail struct {
	Timestamp      time.Time      `json:"timestamp"`
	SearchedTitle  string         `json:"searched_title"`
	SearchedArtist string         `json:"searched_artist"`
	Strategies     []LookupRecord `json:"strategies"`
}

// Song is a source-catalog track cached locally, carrying its ISRC and the
// state of its target-catalog resolution.
type Song struct {
	entity
	spotifyID       string
	name            string
	artistID        string
	albumID         string
	isrc            string
	tidalID         string
	tidalTrackName  string
	tidalArtistName string
	lookupTrail     *LookupTrail
}

// NewSong creates a Song from source-catalog metadata. The artist must already
// be persisted; the album link is optional.
func NewSong(spotifyID, name, artistID string) *Song {
	return &Song{entity: newEntity(), spotifyID: spotifyID, name: name, artistID: artistID}
}

func (s *Song) SpotifyID() string          { return s.spotifyID }
func (s *Song) Name() string               { return s.name }
func (s *Song) ArtistID() string           { return s.artistID }
func (s *Song) AlbumID() string            { return s.albumID }
func (s *Song) ISRC() string               { return s.isrc }
func (s *Song) TidalID() string            { return s.tidalID }
func (s *Song) TidalTrackName() string     { return s.tidalTrackName }
func (s *Song) TidalArtistName() string    { return s.tidalArtistName }
func (s *Song) LookupTrail() *LookupTrail  { return s.lookupTrail }

// LookupLog returns the attempt entries of the latest resolution run, or nil
// when the song was never looked up.
func (s *Song) LookupLog() []LookupRecord {
	if s.lookupTrail == nil {
		return nil
	}
	return s.lookupTrail.Strategies
}

func (s *Song) SetName(name string)       { s.name = name }
func (s *Song) SetAlbumID(albumID string) { s.albumID = albumID }
func (s *Song) SetISRC(isrc string)       { s.isrc = isrc }

// PatchISRC fills in a missing ISRC. An already-known code is never
// overwritten; re-imports only add information.
func (s *Song) PatchISRC(isrc string) bool {
	if s.isrc != "" || isrc == "" {
		return false
	}
	s.isrc = isrc
	return true
}

// Matched reports whether the song has a resolved target-catalog counterpart.
func (s *Song) Matched() bool { return s.tidalID != "" }

// ApplyMatch records a successful resolution.
func (s *Song) ApplyMatch(tidalID, trackName, artistName string) {
	s.tidalID = tidalID
	s.tidalTrackName = trackName
	s.tidalArtistName = artistName
}

// SetLookupTrail replaces the audit trail with the trail of the latest run.
// Earlier runs are not preserved.
func (s *Song) SetLookupTrail(trail *LookupTrail) { s.lookupTrail = trail }

// Validate checks required fields.
func (s *Song) Validate() error {
	if s.spotifyID == "" {
		return fmt.Errorf("song missing spotify id")
	}
	if s.name == "" {
		return fmt.Errorf("song missing name")
	}
	if s.artistID == "" {
		return fmt.Errorf("song missing artist id")
	}
	return nil
}
