package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresPlaylistStore provides PostgreSQL-backed persistence for playlists.
// Membership uses set semantics: adding a video that is already present is a
// no-op, ordering is insertion order.
type PostgresPlaylistStore struct {
	pool db.Pool
}

// NewPostgresPlaylistStore constructs a playlist store backed by PostgreSQL.
func NewPostgresPlaylistStore(pool db.Pool) *PostgresPlaylistStore {
	return &PostgresPlaylistStore{pool: pool}
}

const addPlaylistVideoSQL = `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = $1), $3)
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `

// Create persists a new playlist.
func (s *PostgresPlaylistStore) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, name, description, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.Name, playlist.Description, playlist.OwnerID, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// FindByID fetches a bare playlist record.
func (s *PostgresPlaylistStore) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, name, description, owner_id, created_at, updated_at
        FROM playlists
        WHERE id = $1
    `, id)

	var p models.Playlist
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}

	return p, nil
}

// ListForUser returns the user's playlists, newest first.
func (s *PostgresPlaylistStore) ListForUser(ctx context.Context, userID string) ([]models.Playlist, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, name, description, owner_id, created_at, updated_at
        FROM playlists
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// Detail returns the playlist joined with its member videos in insertion order.
func (s *PostgresPlaylistStore) Detail(ctx context.Context, id string) (models.PlaylistDetail, error) {
	playlist, err := s.FindByID(ctx, id)
	if err != nil {
		return models.PlaylistDetail{}, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position ASC
    `, id)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	detail := models.PlaylistDetail{Playlist: playlist, Videos: []models.VideoWithOwner{}}
	for rows.Next() {
		var v models.VideoWithOwner
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID,
			&v.CreatedAt, &v.UpdatedAt, &v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar); err != nil {
			return models.PlaylistDetail{}, fmt.Errorf("scan playlist video: %w", err)
		}
		detail.Videos = append(detail.Videos, v)
	}
	if err := rows.Err(); err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return detail, nil
}

// Update persists name/description changes.
func (s *PostgresPlaylistStore) Update(ctx context.Context, playlist models.Playlist) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1
    `, playlist.ID, playlist.Name, playlist.Description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the playlist; membership rows cascade.
func (s *PostgresPlaylistStore) Delete(ctx context.Context, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AddVideo appends a video to the playlist. Re-adding an existing member is a
// no-op (set semantics).
func (s *PostgresPlaylistStore) AddVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, addPlaylistVideoSQL, playlistID, videoID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert playlist video: %w", err)
	}

	return nil
}

// RemoveVideo removes a video from the playlist.
func (s *PostgresPlaylistStore) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("delete playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
