package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/shared"
)

// SongRepository implements [models.Repository] for [models.Song] persistence.
//
// Songs carry cross-catalog resolution state: the ISRC from the source
// catalog, the resolved target identifiers, and the audit trail of the most
// recent resolution run. The trail is stored as JSON in the lookup_log
// column; callers only ever see *models.LookupTrail.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new [SongRepository] with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Create inserts a new song into the database with generated ID and sequence
func (r *SongRepository) Create(song *models.Song) error {
	sequence, err := NextSequence(r.db, "songs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	song.SetID(id)
	song.SetSequence(sequence)

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	lookupLog, err := marshalLookupTrail(song.LookupTrail())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO songs (id, sequence, spotify_id, name, artist_id, album_id, isrc, tidal_id, tidal_track_name, tidal_artist_name, lookup_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		song.SpotifyID(),
		song.Name(),
		song.ArtistID(),
		nullable(song.AlbumID()),
		nullable(song.ISRC()),
		nullable(song.TidalID()),
		nullable(song.TidalTrackName()),
		nullable(song.TidalArtistName()),
		lookupLog,
		song.CreatedAt(),
		song.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Get retrieves a song by ID, excluding soft-deleted songs
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := songSelect + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a song by its source-catalog identifier
func (r *SongRepository) GetBySpotifyID(spotifyID string) (*models.Song, error) {
	query := songSelect + ` WHERE spotify_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// FindOrCreate returns the song with the given Spotify ID, creating it when
// absent. When the song already exists and arrives with an ISRC it did not
// have, the code is patched in; known codes are never overwritten.
func (r *SongRepository) FindOrCreate(song *models.Song) (*models.Song, error) {
	if existing, err := r.GetBySpotifyID(song.SpotifyID()); err == nil {
		if existing.PatchISRC(song.ISRC()) {
			if err := r.Update(existing); err != nil {
				return nil, fmt.Errorf("failed to patch isrc: %w", err)
			}
		}
		return existing, nil
	}

	if err := r.Create(song); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.GetBySpotifyID(song.SpotifyID())
		}
		return nil, err
	}

	return song, nil
}

// Update modifies an existing song in the database, including its resolution
// state and attempt log
func (r *SongRepository) Update(song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	song.SetUpdatedAt(now)

	lookupLog, err := marshalLookupTrail(song.LookupTrail())
	if err != nil {
		return err
	}

	query := `
		UPDATE songs
		SET name = ?, album_id = ?, isrc = ?, tidal_id = ?, tidal_track_name = ?, tidal_artist_name = ?, lookup_log = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		song.Name(),
		nullable(song.AlbumID()),
		nullable(song.ISRC()),
		nullable(song.TidalID()),
		nullable(song.TidalTrackName()),
		nullable(song.TidalArtistName()),
		lookupLog,
		now,
		song.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("song not found or already deleted: %s", song.ID())
	}

	return nil
}

// Delete soft-deletes a song by ID
func (r *SongRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE songs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("song not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all songs matching the given criteria, excluding soft-deleted songs
func (r *SongRepository) List(criteria map[string]any) ([]*models.Song, error) {
	query := songSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if artistID, ok := criteria["artist_id"].(string); ok && artistID != "" {
		query += " AND artist_id = ?"
		args = append(args, artistID)
	}

	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	if matched, ok := criteria["matched"].(bool); ok {
		if matched {
			query += " AND tidal_id IS NOT NULL AND tidal_id != ''"
		} else {
			query += " AND (tidal_id IS NULL OR tidal_id = '')"
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// ListByPlaylist retrieves a playlist's songs in membership order
func (r *SongRepository) ListByPlaylist(playlistID string) ([]*models.Song, error) {
	query := `
		SELECT s.id, s.sequence, s.spotify_id, s.name, s.artist_id, s.album_id, s.isrc, s.tidal_id, s.tidal_track_name, s.tidal_artist_name, s.lookup_log, s.created_at, s.updated_at, s.deleted_at
		FROM songs s
		JOIN playlist_songs ps ON ps.song_id = s.id
		WHERE ps.playlist_id = ? AND s.deleted_at IS NULL
		ORDER BY ps.created_at ASC, s.sequence ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

// ListPendingLookup retrieves a playlist's songs that have no resolved target
// counterpart yet
func (r *SongRepository) ListPendingLookup(playlistID string) ([]*models.Song, error) {
	query := `
		SELECT s.id, s.sequence, s.spotify_id, s.name, s.artist_id, s.album_id, s.isrc, s.tidal_id, s.tidal_track_name, s.tidal_artist_name, s.lookup_log, s.created_at, s.updated_at, s.deleted_at
		FROM songs s
		JOIN playlist_songs ps ON ps.song_id = s.id
		WHERE ps.playlist_id = ? AND s.deleted_at IS NULL
		  AND (s.tidal_id IS NULL OR s.tidal_id = '')
		ORDER BY ps.created_at ASC, s.sequence ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending songs: %w", err)
	}
	defer rows.Close()

	return collectSongs(rows)
}

const songSelect = `
	SELECT id, sequence, spotify_id, name, artist_id, album_id, isrc, tidal_id, tidal_track_name, tidal_artist_name, lookup_log, created_at, updated_at, deleted_at
	FROM songs`

func collectSongs(rows *sql.Rows) ([]*models.Song, error) {
	var songs []*models.Song
	for rows.Next() {
		song, err := scanSong(rows.Scan)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// scanOne scans a single [sql.Row] into a [models.Song]
func (r *SongRepository) scanOne(row *sql.Row) (*models.Song, error) {
	song, err := scanSong(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song not found")
	}
	return song, err
}

func scanSong(scan func(...any) error) (*models.Song, error) {
	var (
		id              string
		sequence        int
		spotifyID       string
		name            string
		artistID        string
		albumID         sql.NullString
		isrc            sql.NullString
		tidalID         sql.NullString
		tidalTrackName  sql.NullString
		tidalArtistName sql.NullString
		lookupLog       sql.NullString
		createdAt       time.Time
		updatedAt       time.Time
		deletedAt       sql.NullTime
	)

	err := scan(&id, &sequence, &spotifyID, &name, &artistID, &albumID, &isrc, &tidalID, &tidalTrackName, &tidalArtistName, &lookupLog, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song := models.NewSong(spotifyID, name, artistID)
	song.SetID(id)
	song.SetSequence(sequence)
	song.SetCreatedAt(createdAt)
	song.SetUpdatedAt(updatedAt)
	if albumID.Valid {
		song.SetAlbumID(albumID.String)
	}
	if isrc.Valid {
		song.SetISRC(isrc.String)
	}
	if tidalID.Valid && tidalID.String != "" {
		song.ApplyMatch(tidalID.String, tidalTrackName.String, tidalArtistName.String)
	}
	if lookupLog.Valid && lookupLog.String != "" {
		var trail models.LookupTrail
		if err := json.Unmarshal([]byte(lookupLog.String), &trail); err != nil {
			return nil, fmt.Errorf("failed to decode lookup log: %w", err)
		}
		song.SetLookupTrail(&trail)
	}
	if deletedAt.Valid {
		song.SetDeletedAt(&deletedAt.Time)
	}

	return song, nil
}

func marshalLookupTrail(trail *models.LookupTrail) (any, error) {
	if trail == nil {
		return nil, nil
	}
	data, err := json.Marshal(trail)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup log: %w", err)
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
