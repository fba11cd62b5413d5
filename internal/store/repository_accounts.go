package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// EnsureCreditAccount creates the balance row with the given starting
// balance if absent. Returns the account and whether this call created
// it (so the caller can write the signup grant ledger row exactly once).
// Concurrent first-use by the same id is race-safe: only the insert that
// wins the ON CONFLICT reports created=true.
func (s *Store) EnsureCreditAccount(ctx context.Context, userID string, startingMicro int64) (*CreditAccount, bool, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return nil, false, err
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO credits (user_id, balance_micro)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING user_id, balance_micro, updated_at
	`, userID, startingMicro)
	var a CreditAccount
	err := row.Scan(&a.UserID, &a.BalanceMicro, &a.UpdatedAt)
	if err == nil {
		return &a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}
	existing, err := s.GetCreditAccount(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) GetCreditAccount(ctx context.Context, userID string) (*CreditAccount, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT user_id, balance_micro, updated_at FROM credits WHERE user_id = $1
	`, userID)
	var a CreditAccount
	if err := row.Scan(&a.UserID, &a.BalanceMicro, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// PreauthDebit decrements the balance only if it covers the amount, in a
// single conditional UPDATE. The condition is the whole concurrency
// story: of two racing preauths only the one whose condition still holds
// at commit time succeeds. On failure the current balance is returned so
// the caller can render "insufficient funds" without a second query.
func (s *Store) PreauthDebit(ctx context.Context, userID string, amountMicro int64) (ok bool, balanceMicro int64, err error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE credits
		SET balance_micro = balance_micro - $2, updated_at = now()
		WHERE user_id = $1 AND balance_micro >= $2
		RETURNING balance_micro
	`, userID, amountMicro)
	err = row.Scan(&balanceMicro)
	if err == nil {
		return true, balanceMicro, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, err
	}
	acct, err := s.GetCreditAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return false, acct.BalanceMicro, nil
}

// SettleCharge deducts an additional charge, capped at the available
// balance so the stored balance never goes negative.
func (s *Store) SettleCharge(ctx context.Context, userID string, amountMicro int64) (int64, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE credits
		SET balance_micro = balance_micro - LEAST($2, GREATEST(0, balance_micro)),
		    updated_at = now()
		WHERE user_id = $1
		RETURNING balance_micro
	`, userID, amountMicro)
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return bal, nil
}

// CreditDelta applies a signed adjustment, clamping the stored balance
// at zero. A refund can request more than is "owed" without ever driving
// the balance negative.
func (s *Store) CreditDelta(ctx context.Context, userID string, deltaMicro int64) (int64, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE credits
		SET balance_micro = GREATEST(0, balance_micro + $2), updated_at = now()
		WHERE user_id = $1
		RETURNING balance_micro
	`, userID, deltaMicro)
	var bal int64
	if err := row.Scan(&bal); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return bal, nil
}
