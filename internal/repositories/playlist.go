package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// PlaylistRepository persists the history of created playlists.
//
// Handles playlist CRUD operations with soft delete support and Spotify id lookups.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `id, sequence, spotify_id, name, url, mood, track_count, created_at, deleted_at`

// rowScanner is satisfied by [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a new playlist record with generated ID and sequence
func (r *PlaylistRepository) Create(record *models.PlaylistRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO playlists (id, sequence, spotify_id, name, url, mood, track_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.SpotifyID(),
		record.Name(),
		record.URL(),
		record.Mood(),
		record.TrackCount(),
		record.CreatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	record.SetID(id)
	record.SetSequence(sequence)
	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PlaylistRecord, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a playlist by its Spotify playlist id
func (r *PlaylistRepository) GetBySpotifyID(spotifyID string) (*models.PlaylistRecord, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE spotify_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, spotifyID))
}

// Find looks a playlist up by record ID, falling back to its Spotify playlist id.
func (r *PlaylistRepository) Find(id string) (*models.PlaylistRecord, error) {
	record, err := r.Get(id)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		record, err = r.GetBySpotifyID(id)
	}
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return record, err
}

// List returns the most recent playlists first. A limit of zero or less returns all of them.
//
// A non-empty mood restricts the history to that mood.
func (r *PlaylistRepository) List(limit int, mood string) ([]*models.PlaylistRecord, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if mood != "" {
		query += " AND mood = ?"
		args = append(args, mood)
	}

	query += " ORDER BY sequence DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var records []*models.PlaylistRecord
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

func (r *PlaylistRepository) scan(row rowScanner) (*models.PlaylistRecord, error) {
	var (
		id         string
		sequence   int
		spotifyID  string
		name       string
		url        string
		mood       string
		trackCount int
		createdAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &spotifyID, &name, &url, &mood, &trackCount, &createdAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePlaylistRecord(id, sequence, spotifyID, name, url, mood, trackCount, createdAt, deleted), nil
}
