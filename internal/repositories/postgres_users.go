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

const userColumns = `id, username, email, full_name, password_hash, avatar, cover_image, COALESCE(refresh_token, ''), created_at, updated_at`

const profileColumns = `id, username, email, full_name, avatar, cover_image, created_at, updated_at`

// PostgresUserStore provides PostgreSQL-backed persistence for users.
type PostgresUserStore struct {
	pool db.Pool
}

// NewPostgresUserStore constructs a user store backed by PostgreSQL.
func NewPostgresUserStore(pool db.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

// Create persists a new user record.
func (s *PostgresUserStore) Create(ctx context.Context, user models.User) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.Avatar, user.CoverImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a full user record (including credential fields) by email.
func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row, "select user by email")
}

// FindByID fetches a full user record (including credential fields) by id.
func (s *PostgresUserStore) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "select user by id")
}

// FindProfileByID fetches the sanitized profile projection, never selecting
// the password hash or stored refresh token.
func (s *PostgresUserStore) FindProfileByID(ctx context.Context, id string) (models.Profile, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id)

	var p models.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.Avatar, &p.CoverImage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("select profile: %w", err)
	}

	return p, nil
}

// SetRefreshToken overwrites the stored refresh token; an empty token clears it.
func (s *PostgresUserStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = NULLIF($2, ''), updated_at = $3 WHERE id = $1
    `, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the password hash.
func (s *PostgresUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
    `, userID, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateAccount updates full name and email, returning the fresh profile.
func (s *PostgresUserStore) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.Profile, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users SET full_name = $2, email = $3, updated_at = $4
        WHERE id = $1
        RETURNING `+profileColumns+`
    `, userID, fullName, email, time.Now().UTC())

	var p models.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.Avatar, &p.CoverImage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Profile{}, ErrConflict
		}
		return models.Profile{}, fmt.Errorf("update account: %w", err)
	}

	return p, nil
}

// UpdateImage replaces the avatar or cover image URL and returns the previous
// URL so the caller can best-effort delete the old object.
func (s *PostgresUserStore) UpdateImage(ctx context.Context, userID, column, url string) (models.Profile, string, error) {
	if column != "avatar" && column != "cover_image" {
		return models.Profile{}, "", fmt.Errorf("update image: unsupported column %q", column)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var previous string
	if err := conn.QueryRow(ctx, `SELECT `+column+` FROM users WHERE id = $1`, userID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, "", ErrNotFound
		}
		return models.Profile{}, "", fmt.Errorf("select previous image: %w", err)
	}

	row := conn.QueryRow(ctx, `
        UPDATE users SET `+column+` = $2, updated_at = $3
        WHERE id = $1
        RETURNING `+profileColumns+`
    `, userID, url, time.Now().UTC())

	var p models.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.Avatar, &p.CoverImage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Profile{}, "", fmt.Errorf("update image: %w", err)
	}

	return p, previous, nil
}

// ChannelProfile builds the public channel read model for a username, with
// requester-relative subscription state. viewerID may be empty for anonymous
// requesters.
func (s *PostgresUserStore) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar, u.cover_image, u.email,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
               EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = $2)
        FROM users u
        WHERE u.username = $1
    `, username, viewerID)

	var profile models.ChannelProfile
	if err := row.Scan(&profile.ID, &profile.Username, &profile.FullName, &profile.Avatar, &profile.CoverImage,
		&profile.Email, &profile.SubscribersCount, &profile.ChannelsSubscribedToCount, &profile.IsSubscribed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT id, video_file, thumbnail, title, duration
        FROM videos
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, profile.ID)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	profile.Videos = []models.VideoSummary{}
	for rows.Next() {
		var v models.VideoSummary
		if err := rows.Scan(&v.ID, &v.VideoFile, &v.Thumbnail, &v.Title, &v.Duration); err != nil {
			return models.ChannelProfile{}, fmt.Errorf("scan channel video: %w", err)
		}
		profile.Videos = append(profile.Videos, v)
	}
	if err := rows.Err(); err != nil {
		return models.ChannelProfile{}, fmt.Errorf("iterate channel videos: %w", err)
	}

	return profile, nil
}

// ChannelStats aggregates the owner's videos with per-video view and like
// counts and channel-wide totals.
func (s *PostgresUserStore) ChannelStats(ctx context.Context, userID string) (models.ChannelStats, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar, u.cover_image,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)
        FROM users u
        WHERE u.id = $1
    `, userID)

	var stats models.ChannelStats
	if err := row.Scan(&stats.ID, &stats.Username, &stats.FullName, &stats.Avatar, &stats.CoverImage, &stats.TotalSubscribers); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelStats{}, ErrNotFound
		}
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.owner_id, v.created_at, v.updated_at,
               (SELECT COUNT(*) FROM watch_history h WHERE h.video_id = v.id) AS views,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id) AS likes_count
        FROM videos v
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC
    `, userID)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("query owned videos: %w", err)
	}
	defer rows.Close()

	stats.Videos = []models.VideoStats{}
	for rows.Next() {
		var v models.VideoStats
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.OwnerID,
			&v.CreatedAt, &v.UpdatedAt, &v.Views, &v.LikesCount); err != nil {
			return models.ChannelStats{}, fmt.Errorf("scan owned video: %w", err)
		}
		stats.Videos = append(stats.Videos, v)
		stats.TotalViews += v.Views
		stats.TotalLikes += v.LikesCount
	}
	if err := rows.Err(); err != nil {
		return models.ChannelStats{}, fmt.Errorf("iterate owned videos: %w", err)
	}

	stats.TotalVideos = len(stats.Videos)
	return stats, nil
}

func scanUser(row pgx.Row, op string) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.Avatar, &user.CoverImage, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
