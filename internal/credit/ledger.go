package credit

import (
	"context"

	"github.com/rs/zerolog/log"

	"thepit/internal/store"
)

// Ledger transaction sources. The set mirrors the CHECK constraint on
// credit_transactions.source.
const (
	SourcePreauth                  = "preauth"
	SourceSettlement               = "settlement"
	SourceSettlementError          = "settlement-error"
	SourcePurchase                 = "purchase"
	SourceSubscriptionGrant        = "subscription_grant"
	SourceSubscriptionUpgradeGrant = "subscription_upgrade_grant"
	SourceMonthlyGrant             = "monthly_grant"
	SourceSignup                   = "signup"
	SourceReferral                 = "referral"
)

// Ledger exposes the atomic balance operations. Every balance mutation
// goes through here and pairs a conditional-update with a ledger row.
type Ledger struct {
	store         *store.Store
	startingMicro int64
}

func NewLedger(st *store.Store, startingMicro int64) *Ledger {
	return &Ledger{store: st, startingMicro: startingMicro}
}

type PreauthResult struct {
	OK           bool
	BalanceMicro int64
}

// EnsureAccount creates the credit account on first use, seeding the
// signup grant. Safe under concurrent first-use: the grant row is
// written only by the caller whose insert won.
func (l *Ledger) EnsureAccount(ctx context.Context, userID string) (*store.CreditAccount, error) {
	acct, created, err := l.store.EnsureCreditAccount(ctx, userID, l.startingMicro)
	if err != nil {
		return nil, err
	}
	if created && l.startingMicro > 0 {
		if _, err := l.store.InsertCreditTransaction(ctx, store.CreditTransaction{
			UserID:     userID,
			DeltaMicro: l.startingMicro,
			Source:     SourceSignup,
			Metadata:   map[string]any{"startingMicro": l.startingMicro},
		}); err != nil {
			return nil, err
		}
		log.Info().Str("user_id", userID).Int64("starting_micro", l.startingMicro).Msg("credit account created")
	}
	return acct, nil
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	acct, err := l.EnsureAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acct.BalanceMicro, nil
}

func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) ([]store.CreditTransaction, error) {
	return l.store.ListCreditTransactions(ctx, userID, limit)
}

// Preauthorize reserves amountMicro against the balance. The decrement
// happens in one conditional statement; under concurrent attempts only
// those whose condition holds at commit time succeed, so a balance
// sufficient for one cannot fund two. On failure no ledger row is
// written and the current balance is reported.
func (l *Ledger) Preauthorize(ctx context.Context, userID string, amountMicro int64, source string, meta map[string]any) (PreauthResult, error) {
	if _, err := l.EnsureAccount(ctx, userID); err != nil {
		return PreauthResult{}, err
	}
	ok, balance, err := l.store.PreauthDebit(ctx, userID, amountMicro)
	if err != nil {
		return PreauthResult{}, err
	}
	if !ok {
		return PreauthResult{OK: false, BalanceMicro: balance}, nil
	}
	if _, err := l.store.InsertCreditTransaction(ctx, store.CreditTransaction{
		UserID:      userID,
		DeltaMicro:  -amountMicro,
		Source:      source,
		ReferenceID: refID(meta),
		Metadata:    meta,
	}); err != nil {
		return PreauthResult{}, err
	}
	return PreauthResult{OK: true, BalanceMicro: balance}, nil
}

// Settle trues up a completed run: deltaMicro = actual - preauthorized.
// A positive delta means the estimate undershot, so the gap is charged
// on top (capped at the available balance in a single statement). A
// negative delta means the estimate overshot, so the gap is refunded
// unconditionally. Either way the net charge ends up at the actual cost.
func (l *Ledger) Settle(ctx context.Context, userID string, deltaMicro int64, source string, meta map[string]any) error {
	if deltaMicro == 0 {
		return nil
	}
	if deltaMicro > 0 {
		if _, err := l.store.SettleCharge(ctx, userID, deltaMicro); err != nil {
			return err
		}
		_, err := l.store.InsertCreditTransaction(ctx, store.CreditTransaction{
			UserID:      userID,
			DeltaMicro:  -deltaMicro,
			Source:      source,
			ReferenceID: refID(meta),
			Metadata:    meta,
		})
		return err
	}
	return l.ApplyDelta(ctx, userID, -deltaMicro, source, meta)
}

// ApplyDelta applies a signed adjustment with the stored balance clamped
// at zero server-side. The ledger row records the requested delta even
// when the clamp bites, keeping the append-only log honest about intent.
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, deltaMicro int64, source string, meta map[string]any) error {
	if _, err := l.store.InsertCreditTransaction(ctx, store.CreditTransaction{
		UserID:      userID,
		DeltaMicro:  deltaMicro,
		Source:      source,
		ReferenceID: refID(meta),
		Metadata:    meta,
	}); err != nil {
		return err
	}
	_, err := l.store.CreditDelta(ctx, userID, deltaMicro)
	return err
}

func refID(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta["referenceId"].(string); ok {
		return v
	}
	return ""
}
