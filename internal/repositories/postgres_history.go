package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresHistoryStore provides PostgreSQL-backed persistence for watch history.
type PostgresHistoryStore struct {
	pool db.Pool
}

// NewPostgresHistoryStore constructs a watch-history store backed by PostgreSQL.
func NewPostgresHistoryStore(pool db.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{pool: pool}
}

// RecordView inserts the first-view row for a user/video pair. Subsequent
// views of the same video by the same user are no-ops: the unique constraint
// on (user_id, video_id) makes the insert idempotent.
func (s *PostgresHistoryStore) RecordView(ctx context.Context, userID, videoID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (id, user_id, video_id, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, uuid.NewString(), userID, videoID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert history row: %w", err)
	}

	return nil
}

// ListForUser joins the user's history rows to their videos (with owner
// projections), newest view first. Only the video objects are returned; the
// history metadata itself is not exposed.
func (s *PostgresHistoryStore) ListForUser(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoWithOwner{}
	for rows.Next() {
		var v models.VideoWithOwner
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID,
			&v.CreatedAt, &v.UpdatedAt, &v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar); err != nil {
			return nil, fmt.Errorf("scan history video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return videos, nil
}
