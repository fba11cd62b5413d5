package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// EnsureIntroPool seeds the singleton pool row on first boot.
func (s *Store) EnsureIntroPool(ctx context.Context, initialMicro int64, halfLifeMinutes float64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO intro_pool (id, initial_micro, half_life_minutes)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO NOTHING
	`, initialMicro, halfLifeMinutes)
	return err
}

func (s *Store) GetIntroPool(ctx context.Context) (*IntroPool, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT initial_micro, claimed_micro, half_life_minutes, started_at, updated_at
		FROM intro_pool WHERE id = 1
	`)
	var p IntroPool
	if err := row.Scan(&p.InitialMicro, &p.ClaimedMicro, &p.HalfLifeMinutes, &p.StartedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ClaimIntroPool grants min(requested, remaining-at-commit) in a single
// statement. The ceiling is recomputed from wall-clock time inside the
// UPDATE, so racing claims serialize on the row and each sees the decayed
// remainder left by the previous one. Returns the amount actually granted
// and the pool row after the claim.
func (s *Store) ClaimIntroPool(ctx context.Context, requestedMicro int64) (int64, *IntroPool, error) {
	row := s.Pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT claimed_micro FROM intro_pool WHERE id = 1 FOR UPDATE
		)
		UPDATE intro_pool p
		SET claimed_micro = p.claimed_micro + LEAST(
			$1,
			GREATEST(0,
				FLOOR(p.initial_micro * POWER(0.5,
					(EXTRACT(EPOCH FROM (now() - p.started_at)) / 60.0) / p.half_life_minutes
				))::bigint - p.claimed_micro
			)
		),
		    updated_at = now()
		FROM prev
		WHERE p.id = 1
		RETURNING p.claimed_micro - prev.claimed_micro,
		          p.initial_micro, p.claimed_micro, p.half_life_minutes, p.started_at, p.updated_at
	`, requestedMicro)
	var (
		granted int64
		p       IntroPool
	)
	err := row.Scan(&granted, &p.InitialMicro, &p.ClaimedMicro, &p.HalfLifeMinutes, &p.StartedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, err
	}
	return granted, &p, nil
}

// RefundIntroPool returns credits to the pool after a failed anonymous
// run. Clamped so claimed_micro never goes negative.
func (s *Store) RefundIntroPool(ctx context.Context, amountMicro int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE intro_pool
		SET claimed_micro = GREATEST(0, claimed_micro - $1), updated_at = now()
		WHERE id = 1
	`, amountMicro)
	return err
}
