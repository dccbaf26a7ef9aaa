package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/backend/internal/db"
)

// PostgresLikeStore provides PostgreSQL-backed persistence for like toggles.
// A like row targets exactly one of a video or a comment.
type PostgresLikeStore struct {
	pool db.Pool
}

// NewPostgresLikeStore constructs a like store backed by PostgreSQL.
func NewPostgresLikeStore(pool db.Pool) *PostgresLikeStore {
	return &PostgresLikeStore{pool: pool}
}

// ToggleVideo flips the user's like on a video: delete if present, create if
// absent. Returns the resulting state (true = now liked).
func (s *PostgresLikeStore) ToggleVideo(ctx context.Context, userID, videoID string) (bool, error) {
	return s.toggle(ctx, userID, "video_id", videoID)
}

// ToggleComment flips the user's like on a comment.
func (s *PostgresLikeStore) ToggleComment(ctx context.Context, userID, commentID string) (bool, error) {
	return s.toggle(ctx, userID, "comment_id", commentID)
}

func (s *PostgresLikeStore) toggle(ctx context.Context, userID, column, targetID string) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2
    `, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, `+column+`, created_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), userID, targetID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return false, ErrNotFound
			case "23505":
				// Concurrent toggle already created the row; the like is on.
				return true, nil
			}
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}
