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

// PostgresCommentStore provides PostgreSQL-backed persistence for comments.
type PostgresCommentStore struct {
	pool db.Pool
}

// NewPostgresCommentStore constructs a comment store backed by PostgreSQL.
func NewPostgresCommentStore(pool db.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

// Create persists a new comment.
func (s *PostgresCommentStore) Create(ctx context.Context, comment models.Comment) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, content, owner_id, video_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.Content, comment.OwnerID, comment.VideoID, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// FindByID fetches a bare comment record.
func (s *PostgresCommentStore) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, content, owner_id, video_id, created_at, updated_at
        FROM comments
        WHERE id = $1
    `, id)

	var c models.Comment
	if err := row.Scan(&c.ID, &c.Content, &c.OwnerID, &c.VideoID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}

	return c, nil
}

// Update persists new comment content.
func (s *PostgresCommentStore) Update(ctx context.Context, id, content string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1
    `, id, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a comment.
func (s *PostgresCommentStore) Delete(ctx context.Context, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForVideo returns the per-video comment read model, newest first, with
// like counts and the viewer's like flag. viewerID may be empty.
func (s *PostgresCommentStore) ListForVideo(ctx context.Context, videoID, viewerID string) ([]models.CommentView, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT c.id, c.content, c.video_id, c.created_at, c.updated_at,
               u.id, u.username, u.full_name, u.avatar,
               (SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id),
               EXISTS (SELECT 1 FROM likes l WHERE l.comment_id = c.id AND l.liked_by = $2)
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC
    `, videoID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.CommentView{}
	for rows.Next() {
		var c models.CommentView
		if err := rows.Scan(&c.ID, &c.Content, &c.VideoID, &c.CreatedAt, &c.UpdatedAt,
			&c.Owner.ID, &c.Owner.Username, &c.Owner.FullName, &c.Owner.Avatar,
			&c.LikesCount, &c.IsLiked); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}
