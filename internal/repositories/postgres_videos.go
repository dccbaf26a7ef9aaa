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

// ListVideosParams captures the listing filters after handler-side validation.
type ListVideosParams struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortType string
	Page     int
	Limit    int
}

// sortColumns is the allow-list of sort keys; anything else falls back to
// creation time. Views are derived from watch-history rows, so sorting by
// views orders on the correlated count.
var sortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "(SELECT COUNT(*) FROM watch_history h WHERE h.video_id = v.id)",
	"title":     "v.title",
}

// Normalize clamps pagination, applies defaults and resolves the sort key to
// its SQL expression plus direction.
func (p ListVideosParams) Normalize() ListVideosParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 50 {
		p.Limit = 50
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		p.SortBy = "createdAt"
	}
	if p.SortType != "asc" {
		p.SortType = "desc"
	}
	return p
}

// PostgresVideoStore provides PostgreSQL-backed persistence for videos.
type PostgresVideoStore struct {
	pool db.Pool
}

// NewPostgresVideoStore constructs a video store backed by PostgreSQL.
func NewPostgresVideoStore(pool db.Pool) *PostgresVideoStore {
	return &PostgresVideoStore{pool: pool}
}

// Create persists a published video.
func (s *PostgresVideoStore) Create(ctx context.Context, video models.Video) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, title, description, video_file, thumbnail, duration, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, video.ID, video.Title, video.Description, video.VideoFile, video.Thumbnail, video.Duration, video.OwnerID, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a bare video record.
func (s *PostgresVideoStore) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, title, description, video_file, thumbnail, duration, owner_id, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id)

	var v models.Video
	if err := row.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return v, nil
}

// Update persists title, description and thumbnail changes.
func (s *PostgresVideoStore) Update(ctx context.Context, video models.Video) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos SET title = $2, description = $3, thumbnail = $4, updated_at = $5 WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the record. Child rows (comments, likes, history, playlist
// membership) are removed by cascading foreign keys; the S3 objects are the
// caller's best-effort concern.
func (s *PostgresVideoStore) Delete(ctx context.Context, id string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns one page of videos with owner projections plus the unpaged
// total for the same filters.
func (s *PostgresVideoStore) List(ctx context.Context, params ListVideosParams) ([]models.VideoWithOwner, int, error) {
	params = params.Normalize()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where := `WHERE ($1 = '' OR v.title ILIKE '%' || $1 || '%')
              AND ($2 = '' OR v.owner_id = $2)`

	direction := "DESC"
	if params.SortType == "asc" {
		direction = "ASC"
	}
	orderBy := sortColumns[params.SortBy] + " " + direction

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos v `+where, params.Query, params.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        `+where+`
        ORDER BY `+orderBy+`
        OFFSET $3 LIMIT $4
    `, params.Query, params.OwnerID, (params.Page-1)*params.Limit, params.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoWithOwner{}
	for rows.Next() {
		var v models.VideoWithOwner
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID,
			&v.CreatedAt, &v.UpdatedAt, &v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar); err != nil {
			return nil, 0, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, total, nil
}

// Detail builds the single-video read model with like count, view count and
// the viewer's like flag. viewerID may be empty for anonymous requesters.
func (s *PostgresVideoStore) Detail(ctx context.Context, videoID, viewerID string) (models.VideoDetail, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id),
               (SELECT COUNT(*) FROM watch_history h WHERE h.video_id = v.id),
               EXISTS (SELECT 1 FROM likes l WHERE l.video_id = v.id AND l.liked_by = $2)
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, videoID, viewerID)

	var d models.VideoDetail
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &d.VideoFile, &d.Thumbnail, &d.Duration, &d.OwnerID,
		&d.CreatedAt, &d.UpdatedAt, &d.Owner.ID, &d.Owner.Username, &d.Owner.FullName, &d.Owner.Avatar,
		&d.TotalLikes, &d.TotalViews, &d.IsLiked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoDetail{}, ErrNotFound
		}
		return models.VideoDetail{}, fmt.Errorf("select video detail: %w", err)
	}

	return d, nil
}

// ListLiked returns the videos a user has liked, newest like first.
func (s *PostgresVideoStore) ListLiked(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoWithOwner{}
	for rows.Next() {
		var v models.VideoWithOwner
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID,
			&v.CreatedAt, &v.UpdatedAt, &v.Owner.ID, &v.Owner.Username, &v.Owner.FullName, &v.Owner.Avatar); err != nil {
			return nil, fmt.Errorf("scan liked video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, nil
}
