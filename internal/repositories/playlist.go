package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/shared"
)

// PlaylistRepository implements [models.Repository] for [models.Playlist] persistence.
//
// Handles playlist CRUD with import lifecycle enforcement and track membership.
// Membership has set semantics: attaching a song twice leaves a single row.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new [PlaylistRepository] with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)
	playlist.SetSequence(sequence)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, spotify_id, name, owner, image_url, import_status, last_import_error, tracks_total, tidal_playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.SpotifyID(),
		playlist.Name(),
		nullable(playlist.Owner()),
		nullable(playlist.ImageURL()),
		string(playlist.ImportStatus()),
		nullable(playlist.LastImportError()),
		playlist.TracksTotal(),
		nullable(playlist.TidalPlaylistID()),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := playlistSelect + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a playlist by its source-catalog identifier
func (r *PlaylistRepository) GetBySpotifyID(spotifyID string) (*models.Playlist, error) {
	query := playlistSelect + ` WHERE spotify_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// Update modifies an existing playlist in the database, including its import
// and sync state
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, owner = ?, image_url = ?, import_status = ?, last_import_error = ?, tracks_total = ?, tidal_playlist_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		nullable(playlist.Owner()),
		nullable(playlist.ImageURL()),
		string(playlist.ImportStatus()),
		nullable(playlist.LastImportError()),
		playlist.TracksTotal(),
		nullable(playlist.TidalPlaylistID()),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", playlist.ID())
	}

	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.Playlist, error) {
	query := playlistSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if status, ok := criteria["import_status"].(string); ok && status != "" {
		query += " AND import_status = ?"
		args = append(args, status)
	}

	if synced, ok := criteria["synced"].(bool); ok {
		if synced {
			query += " AND tidal_playlist_id IS NOT NULL AND tidal_playlist_id != ''"
		} else {
			query += " AND (tidal_playlist_id IS NULL OR tidal_playlist_id = '')"
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows.Scan)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// AttachSongs adds songs to the playlist's membership. Attaching an existing
// member is a no-op, so re-imports converge instead of duplicating rows.
func (r *PlaylistRepository) AttachSongs(playlistID string, songIDs []string) error {
	if len(songIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare membership insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, songID := range songIDs {
		if _, err := stmt.Exec(playlistID, songID, now); err != nil {
			return fmt.Errorf("failed to attach song %s: %w", songID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit membership: %w", err)
	}

	return nil
}

// SongCount returns how many songs the playlist currently contains
func (r *PlaylistRepository) SongCount(playlistID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = ?`, playlistID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist songs: %w", err)
	}
	return count, nil
}

// MatchedCount returns how many of the playlist's songs have resolved target
// counterparts
func (r *PlaylistRepository) MatchedCount(playlistID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ? AND s.deleted_at IS NULL
		  AND s.tidal_id IS NOT NULL AND s.tidal_id != ''
	`

	var count int
	if err := r.db.QueryRow(query, playlistID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matched songs: %w", err)
	}
	return count, nil
}

const playlistSelect = `
	SELECT id, sequence, spotify_id, name, owner, image_url, import_status, last_import_error, tracks_total, tidal_playlist_id, created_at, updated_at, deleted_at
	FROM playlists`

// scanOne scans a single [sql.Row] into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.Playlist, error) {
	playlist, err := scanPlaylist(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist not found")
	}
	return playlist, err
}

func scanPlaylist(scan func(...any) error) (*models.Playlist, error) {
	var (
		id              string
		sequence        int
		spotifyID       string
		name            string
		owner           sql.NullString
		imageURL        sql.NullString
		importStatus    sql.NullString
		lastImportError sql.NullString
		tracksTotal     sql.NullInt64
		tidalPlaylistID sql.NullString
		createdAt       time.Time
		updatedAt       time.Time
		deletedAt       sql.NullTime
	)

	err := scan(&id, &sequence, &spotifyID, &name, &owner, &imageURL, &importStatus, &lastImportError, &tracksTotal, &tidalPlaylistID, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist := models.NewPlaylist(spotifyID, name)
	playlist.SetID(id)
	playlist.SetSequence(sequence)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if owner.Valid {
		playlist.SetOwner(owner.String)
	}
	if imageURL.Valid {
		playlist.SetImageURL(imageURL.String)
	}
	if tracksTotal.Valid {
		playlist.SetTracksTotal(int(tracksTotal.Int64))
	}

	status := models.ImportPending
	if importStatus.Valid && importStatus.String != "" {
		status = models.ImportStatus(importStatus.String)
	}
	playlist.Restore(status, lastImportError.String, tidalPlaylistID.String)

	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}
