package store

import (
	"context"
	"encoding/json"
)

// InsertCreditTransaction appends a ledger row. Rows are never mutated
// or deleted; the balance column is a cached projection of their sum.
func (s *Store) InsertCreditTransaction(ctx context.Context, tx CreditTransaction) (string, error) {
	id := NewID()
	meta := tx.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	var refID *string
	if tx.ReferenceID != "" {
		refID = &tx.ReferenceID
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO credit_transactions (id, user_id, delta_micro, source, reference_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, tx.UserID, tx.DeltaMicro, tx.Source, refID, metaJSON)
	return id, err
}

func (s *Store) ListCreditTransactions(ctx context.Context, userID string, limit int) ([]CreditTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, delta_micro, source, reference_id, metadata, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CreditTransaction{}
	for rows.Next() {
		var (
			t        CreditTransaction
			refID    *string
			metaJSON []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.DeltaMicro, &t.Source, &refID, &metaJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		if refID != nil {
			t.ReferenceID = *refID
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &t.Metadata)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
