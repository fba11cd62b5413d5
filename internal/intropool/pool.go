// Package intropool manages the decaying credit pool that funds
// anonymous trial runs. The pool starts with a fixed allotment whose
// spendable ceiling halves every half-life; claims draw from whatever
// the decay curve has left. Once exhausted it never refills.
package intropool

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"thepit/internal/credit"
	"thepit/internal/store"
)

// Remaining computes the spendable micro-credits at elapsed time since
// the pool started. The ceiling decays exponentially; claims are
// subtracted from it, floored at zero.
func Remaining(initialMicro, claimedMicro int64, halfLifeMinutes float64, elapsed time.Duration) int64 {
	if halfLifeMinutes <= 0 {
		return 0
	}
	minutes := elapsed.Minutes()
	if minutes < 0 {
		minutes = 0
	}
	ceiling := int64(math.Floor(float64(initialMicro) * math.Pow(0.5, minutes/halfLifeMinutes)))
	remaining := ceiling - claimedMicro
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status is a point-in-time snapshot of the pool.
type Status struct {
	RemainingMicro  int64
	InitialMicro    int64
	ClaimedMicro    int64
	HalfLifeMinutes float64
	StartedAt       time.Time
	Exhausted       bool
}

type Pool struct {
	store *store.Store
}

func New(st *store.Store) *Pool {
	return &Pool{store: st}
}

// Seed creates the pool row if it does not exist yet. Idempotent across
// restarts; an existing pool keeps its original start time and claims.
func (p *Pool) Seed(ctx context.Context, initialMicro int64, halfLifeMinutes float64) error {
	return p.store.EnsureIntroPool(ctx, initialMicro, halfLifeMinutes)
}

func (p *Pool) Status(ctx context.Context) (*Status, error) {
	row, err := p.store.GetIntroPool(ctx)
	if err != nil {
		return nil, err
	}
	return statusOf(row), nil
}

// Claim grants up to amountMicro from the pool and reports how much was
// actually granted. The grant is computed atomically against the decayed
// ceiling, so concurrent claims can never overdraw it; a dry pool grants
// zero without error.
func (p *Pool) Claim(ctx context.Context, amountMicro int64) (int64, *Status, error) {
	if amountMicro <= 0 {
		st, err := p.Status(ctx)
		return 0, st, err
	}
	granted, row, err := p.store.ClaimIntroPool(ctx, amountMicro)
	if err != nil {
		return 0, nil, err
	}
	if granted > 0 {
		log.Debug().Int64("granted_micro", granted).Int64("claimed_micro", row.ClaimedMicro).Msg("intro pool claim")
	}
	return granted, statusOf(row), nil
}

// ClaimForUser draws from the pool on behalf of a signed-in identity
// and credits whatever was granted to their ledger account. A zero
// grant is a no-op with no ledger side effects.
func (p *Pool) ClaimForUser(ctx context.Context, ledger *credit.Ledger, userID string, amountMicro int64, source string, meta map[string]any) (int64, *Status, error) {
	granted, st, err := p.Claim(ctx, amountMicro)
	if err != nil {
		return 0, nil, err
	}
	if granted <= 0 {
		return 0, st, nil
	}
	if _, err := ledger.EnsureAccount(ctx, userID); err != nil {
		return granted, st, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["introPoolClaimedMicro"] = granted
	meta["introPoolRemainingMicro"] = st.RemainingMicro
	if err := ledger.ApplyDelta(ctx, userID, granted, source, meta); err != nil {
		return granted, st, err
	}
	return granted, st, nil
}

// Refund returns previously claimed credits after a failed run so the
// next anonymous visitor can use them.
func (p *Pool) Refund(ctx context.Context, amountMicro int64) error {
	if amountMicro <= 0 {
		return nil
	}
	return p.store.RefundIntroPool(ctx, amountMicro)
}

func statusOf(row *store.IntroPool) *Status {
	remaining := Remaining(row.InitialMicro, row.ClaimedMicro, row.HalfLifeMinutes, time.Since(row.StartedAt))
	return &Status{
		RemainingMicro:  remaining,
		InitialMicro:    row.InitialMicro,
		ClaimedMicro:    row.ClaimedMicro,
		HalfLifeMinutes: row.HalfLifeMinutes,
		StartedAt:       row.StartedAt,
		Exhausted:       remaining <= 0,
	}
}
