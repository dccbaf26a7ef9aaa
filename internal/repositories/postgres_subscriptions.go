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

// PostgresSubscriptionStore provides PostgreSQL-backed persistence for
// subscriber/channel edges.
type PostgresSubscriptionStore struct {
	pool db.Pool
}

// NewPostgresSubscriptionStore constructs a subscription store backed by PostgreSQL.
func NewPostgresSubscriptionStore(pool db.Pool) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{pool: pool}
}

// Toggle flips the subscriber's edge to the channel. Returns the resulting
// state (true = now subscribed).
func (s *PostgresSubscriptionStore) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), subscriberID, channelID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return false, ErrNotFound
			case "23505":
				return true, nil
			}
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// Subscribers lists the public profiles of a channel's subscribers.
func (s *PostgresSubscriptionStore) Subscribers(ctx context.Context, channelID string) ([]models.Owner, error) {
	return s.listEdges(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID, "query subscribers")
}

// SubscribedChannels lists the public profiles of the channels a user follows.
func (s *PostgresSubscriptionStore) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.Owner, error) {
	return s.listEdges(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID, "query subscribed channels")
}

func (s *PostgresSubscriptionStore) listEdges(ctx context.Context, query, id, op string) ([]models.Owner, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []models.Owner{}
	for rows.Next() {
		var u models.Owner
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Avatar); err != nil {
			return nil, fmt.Errorf("scan subscription edge: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription edges: %w", err)
	}

	return users, nil
}
