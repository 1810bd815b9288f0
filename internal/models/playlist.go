package models

import "fmt"

// ImportStatus tracks a playlist's progress through the import lifecycle.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportInProgress ImportStatus = "in_progress"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Failed imports may be re-queued as pending; completed is terminal.
func (s ImportStatus) CanTransition(next ImportStatus) bool {
	switch s {
	case ImportPending:
		return next == ImportInProgress
	case ImportInProgress:
		return next == ImportCompleted || next == ImportFailed
	case ImportFailed:
		return next == ImportPending
	default:
		return false
	}
}

// Valid reports whether s is a known status value.
func (s ImportStatus) Valid() bool {
	switch s {
	case ImportPending, ImportInProgress, ImportCompleted, ImportFailed:
		return true
	}
	return false
}

// Playlist is a source-catalog playlist with its import and sync state.
type Playlist struct {
	entity
	spotifyID       string
	name            string
	owner           string
	imageURL        string
	importStatus    ImportStatus
	lastImportError string
	tracksTotal     int
	tidalPlaylistID string
}

// NewPlaylist creates a Playlist from source-catalog metadata, queued for
// import.
func NewPlaylist(spotifyID, name string) *Playlist {
	return &Playlist{entity: newEntity(), spotifyID: spotifyID, name: name, importStatus: ImportPending}
}

func (p *Playlist) SpotifyID() string        { return p.spotifyID }
func (p *Playlist) Name() string             { return p.name }
func (p *Playlist) Owner() string            { return p.owner }
func (p *Playlist) ImageURL() string         { return p.imageURL }
func (p *Playlist) ImportStatus() ImportStatus { return p.importStatus }
func (p *Playlist) LastImportError() string  { return p.lastImportError }
func (p *Playlist) TracksTotal() int         { return p.tracksTotal }
func (p *Playlist) TidalPlaylistID() string  { return p.tidalPlaylistID }

func (p *Playlist) SetName(name string)        { p.name = name }
func (p *Playlist) SetOwner(owner string)      { p.owner = owner }
func (p *Playlist) SetImageURL(url string)     { p.imageURL = url }
func (p *Playlist) SetTracksTotal(total int)   { p.tracksTotal = total }

// Synced reports whether a target-catalog playlist has been created for this
// playlist.
func (p *Playlist) Synced() bool { return p.tidalPlaylistID != "" }

// SetTidalPlaylistID records the created target playlist exactly once.
// Repeated syncs reuse the recorded playlist rather than creating another.
func (p *Playlist) SetTidalPlaylistID(id string) error {
	if p.tidalPlaylistID != "" && p.tidalPlaylistID != id {
		return fmt.Errorf("playlist %s already linked to target playlist %s", p.spotifyID, p.tidalPlaylistID)
	}
	p.tidalPlaylistID = id
	return nil
}

// Requeue resets the playlist to pending for a fresh import attempt,
// clearing any recorded error. Unlike TransitionImport this is an external
// escape hatch and applies from any status, so a run interrupted while
// in_progress can be imported again.
func (p *Playlist) Requeue() {
	p.importStatus = ImportPending
	p.lastImportError = ""
}

// TransitionImport moves the playlist to next, enforcing lifecycle order.
// Entering in_progress or pending clears the recorded error.
func (p *Playlist) TransitionImport(next ImportStatus, importErr string) error {
	if !p.importStatus.CanTransition(next) {
		return fmt.Errorf("illegal import transition %s -> %s", p.importStatus, next)
	}
	p.importStatus = next
	switch next {
	case ImportFailed:
		p.lastImportError = importErr
	default:
		p.lastImportError = ""
	}
	return nil
}

// restoreImportStatus sets persisted status without lifecycle checks. Used by
// repositories when hydrating rows.
func (p *Playlist) restoreImportStatus(status ImportStatus, lastErr string) {
	p.importStatus = status
	p.lastImportError = lastErr
}

// Restore rehydrates persisted status fields bypassing transition rules.
func (p *Playlist) Restore(status ImportStatus, lastErr, tidalPlaylistID string) {
	p.restoreImportStatus(status, lastErr)
	p.tidalPlaylistID = tidalPlaylistID
}

// Validate checks required fields and status validity.
func (p *Playlist) Validate() error {
	if p.spotifyID == "" {
		return fmt.Errorf("playlist missing spotify id")
	}
	if p.name == "" {
		return fmt.Errorf("playlist missing name")
	}
	if !p.importStatus.Valid() {
		return fmt.Errorf("playlist has unknown import status %q", p.importStatus)
	}
	return nil
}
