package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crosstune/internal/models"
	"github.com/desertthunder/crosstune/internal/shared"
)

// ArtistRepository implements [models.Repository] for [models.Artist] persistence.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new [ArtistRepository] with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create inserts a new artist into the database with generated ID and sequence
func (r *ArtistRepository) Create(artist *models.Artist) error {
	sequence, err := NextSequence(r.db, "artists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	artist.SetID(id)
	artist.SetSequence(sequence)

	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO artists (id, sequence, spotify_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, artist.SpotifyID(), artist.Name(), artist.CreatedAt(), artist.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	return nil
}

// Get retrieves an artist by ID, excluding soft-deleted artists
func (r *ArtistRepository) Get(id string) (*models.Artist, error) {
	query := `
		SELECT id, sequence, spotify_id, name, created_at, updated_at, deleted_at
		FROM artists
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves an artist by its source-catalog identifier
func (r *ArtistRepository) GetBySpotifyID(spotifyID string) (*models.Artist, error) {
	query := `
		SELECT id, sequence, spotify_id, name, created_at, updated_at, deleted_at
		FROM artists
		WHERE spotify_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// FindOrCreate returns the artist with the given Spotify ID, creating it when
// absent. Concurrent creation losing to the UNIQUE constraint falls back to a
// re-read.
func (r *ArtistRepository) FindOrCreate(spotifyID, name string) (*models.Artist, error) {
	if existing, err := r.GetBySpotifyID(spotifyID); err == nil {
		return existing, nil
	}

	artist := models.NewArtist(spotifyID, name)
	if err := r.Create(artist); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return r.GetBySpotifyID(spotifyID)
		}
		return nil, err
	}

	return artist, nil
}

// Update modifies an existing artist in the database
func (r *ArtistRepository) Update(artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	artist.SetUpdatedAt(now)

	query := `
		UPDATE artists
		SET name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, artist.Name(), now, artist.ID())
	if err != nil {
		return fmt.Errorf("failed to update artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artist not found or already deleted: %s", artist.ID())
	}

	return nil
}

// Delete soft-deletes an artist by ID
func (r *ArtistRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE artists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete artist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artist not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all artists matching the given criteria, excluding soft-deleted artists
func (r *ArtistRepository) List(criteria map[string]any) ([]*models.Artist, error) {
	query := `
		SELECT id, sequence, spotify_id, name, created_at, updated_at, deleted_at
		FROM artists
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// scanOne scans a single [sql.Row] into a [models.Artist]
func (r *ArtistRepository) scanOne(row *sql.Row) (*models.Artist, error) {
	var (
		id        string
		sequence  int
		spotifyID string
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &spotifyID, &name, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	return hydrateArtist(id, sequence, spotifyID, name, createdAt, updatedAt, deletedAt), nil
}

func scanArtist(rows *sql.Rows) (*models.Artist, error) {
	var (
		id        string
		sequence  int
		spotifyID string
		name      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &spotifyID, &name, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	return hydrateArtist(id, sequence, spotifyID, name, createdAt, updatedAt, deletedAt), nil
}

func hydrateArtist(id string, sequence int, spotifyID, name string, createdAt, updatedAt time.Time, deletedAt sql.NullTime) *models.Artist {
	artist := models.NewArtist(spotifyID, name)
	artist.SetID(id)
	artist.SetSequence(sequence)
	artist.SetCreatedAt(createdAt)
	artist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		artist.SetDeletedAt(&deletedAt.Time)
	}
	return artist
}
