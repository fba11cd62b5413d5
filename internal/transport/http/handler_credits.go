package httptransport

import (
	"net/http"
	"time"

	"thepit/internal/credit"
)

type CreditHandlers struct {
	ledger *credit.Ledger
}

func NewCreditHandlers(ledger *credit.Ledger) *CreditHandlers {
	return &CreditHandlers{ledger: ledger}
}

type transactionResponse struct {
	ID          string    `json:"id"`
	DeltaMicro  int64     `json:"deltaMicro"`
	Source      string    `json:"source"`
	ReferenceID string    `json:"referenceId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Credits reports the signed-in user's balance and recent ledger rows.
func (h *CreditHandlers) Credits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			WriteHTTPError(w, http.StatusUnauthorized, "Sign in required.")
			return
		}
		balance, err := h.ledger.Balance(r.Context(), uid)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "Internal error.")
			return
		}
		txs, err := h.ledger.Transactions(r.Context(), uid, 20)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "Internal error.")
			return
		}
		out := make([]transactionResponse, 0, len(txs))
		for _, tx := range txs {
			out = append(out, transactionResponse{
				ID:          tx.ID,
				DeltaMicro:  tx.DeltaMicro,
				Source:      tx.Source,
				ReferenceID: tx.ReferenceID,
				CreatedAt:   tx.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"balanceMicro": balance,
			"credits":      balance / credit.MicroPerCredit,
			"transactions": out,
		})
	}
}
