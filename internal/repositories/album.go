package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/shared"
)

// AlbumRepository implements [models.Repository] for [models.Album] persistence.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new [AlbumRepository] with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Create inserts a new album into the database with generated ID and sequence
func (r *AlbumRepository) Create(album *models.Album) error {
	sequence, err := NextSequence(r.db, "albums")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	album.SetID(id)
	album.SetSequence(sequence)

	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO albums (id, sequence, spotify_id, name, artist_id, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		album.SpotifyID(),
		album.Name(),
		album.ArtistID(),
		album.ImageURL(),
		album.CreatedAt(),
		album.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	return nil
}

// Get retrieves an album by ID, excluding soft-deleted albums
func (r *AlbumRepository) Get(id string) (*models.Album, error) {
	query := albumSelect + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves an album by its source-catalog identifier
func (r *AlbumRepository) GetBySpotifyID(spotifyID string) (*models.Album, error) {
	query := albumSelect + ` WHERE spotify_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// FindOrCreate returns the album with the given Spotify ID, creating it when
// absent.
func (r *AlbumRepository) FindOrCreate(spotifyID, name, artistID string) (*models.Album, error) {
	if existing, err := r.GetBySpotifyID(spotifyID); err == nil {
		return existing, nil
	}

	album := models.NewAlbum(spotifyID, name, artistID)
	if err := r.Create(album); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.GetBySpotifyID(spotifyID)
		}
		return nil, err
	}

	return album, nil
}

// Update modifies an existing album in the database
func (r *AlbumRepository) Update(album *models.Album) error {
	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	album.SetUpdatedAt(now)

	query := `
		UPDATE albums
		SET name = ?, image_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, album.Name(), album.ImageURL(), now, album.ID())
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("album not found or already deleted: %s", album.ID())
	}

	return nil
}

// Delete soft-deletes an album by ID
func (r *AlbumRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE albums
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("album not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all albums matching the given criteria, excluding soft-deleted albums
func (r *AlbumRepository) List(criteria map[string]any) ([]*models.Album, error) {
	query := albumSelect + ` WHERE deleted_at IS NULL`

	args := []any{}

	if artistID, ok := criteria["artist_id"].(string); ok && artistID != "" {
		query += " AND artist_id = ?"
		args = append(args, artistID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

const albumSelect = `
	SELECT id, sequence, spotify_id, name, artist_id, image_url, created_at, updated_at, deleted_at
	FROM albums`

// scanOne scans a single [sql.Row] into a [models.Album]
func (r *AlbumRepository) scanOne(row *sql.Row) (*models.Album, error) {
	var (
		id        string
		sequence  int
		spotifyID string
		name      string
		artistID  string
		imageURL  sql.NullString
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &spotifyID, &name, &artistID, &imageURL, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("album not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	return hydrateAlbum(id, sequence, spotifyID, name, artistID, imageURL, createdAt, updatedAt, deletedAt), nil
}

func scanAlbum(rows *sql.Rows) (*models.Album, error) {
	var (
		id        string
		sequence  int
		spotifyID string
		name      string
		artistID  string
		imageURL  sql.NullString
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &spotifyID, &name, &artistID, &imageURL, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	return hydrateAlbum(id, sequence, spotifyID, name, artistID, imageURL, createdAt, updatedAt, deletedAt), nil
}

func hydrateAlbum(id string, sequence int, spotifyID, name, artistID string, imageURL sql.NullString, createdAt, updatedAt time.Time, deletedAt sql.NullTime) *models.Album {
	album := models.NewAlbum(spotifyID, name, artistID)
	album.SetID(id)
	album.SetSequence(sequence)
	album.SetCreatedAt(createdAt)
	album.SetUpdatedAt(updatedAt)
	if imageURL.Valid {
		album.SetImageURL(imageURL.String)
	}
	if deletedAt.Valid {
		album.SetDeletedAt(&deletedAt.Time)
	}
	return album
}
