package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// EnsureUser creates the user row on first use. Concurrent first-use is
// absorbed by ON CONFLICT DO NOTHING.
func (s *Store) EnsureUser(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, subscription_tier, free_bouts_used, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	var u User
	if err := row.Scan(&u.ID, &u.SubscriptionTier, &u.FreeBoutsUsed, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetSubscriptionTier returns the stored tier, or "" when no row exists
// so the caller can apply its default.
func (s *Store) GetSubscriptionTier(ctx context.Context, id string) (string, error) {
	row := s.Pool.QueryRow(ctx, `SELECT subscription_tier FROM users WHERE id = $1`, id)
	var tier string
	if err := row.Scan(&tier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return tier, nil
}

func (s *Store) SetSubscriptionTier(ctx context.Context, id, tier string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE users SET subscription_tier = $2, updated_at = now() WHERE id = $1
	`, id, tier)
	return err
}

func (s *Store) GetFreeBoutsUsed(ctx context.Context, id string) (int, error) {
	row := s.Pool.QueryRow(ctx, `SELECT free_bouts_used FROM users WHERE id = $1`, id)
	var used int
	if err := row.Scan(&used); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return used, nil
}

func (s *Store) IncrementFreeBoutsUsed(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE users SET free_bouts_used = free_bouts_used + 1, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// CountBoutsSince counts bouts owned by the user created at or after the
// cutoff. Used for per-tier daily caps.
func (s *Store) CountBoutsSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM bouts WHERE owner_id = $1 AND created_at >= $2
	`, ownerID, since)
	var c int
	if err := row.Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}

func (s *Store) CountCompletedBoutsByOwner(ctx context.Context, ownerID string) (int, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM bouts WHERE owner_id = $1 AND status = 'completed'
	`, ownerID)
	var c int
	if err := row.Scan(&c); err != nil {
		return 0, err
	}
	return c, nil
}
