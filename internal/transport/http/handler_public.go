package httptransport

import (
	"net/http"
	"time"

	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/intropool"
	"thepit/internal/preset"
	"thepit/internal/store"
)

type PublicHandlers struct {
	store   *store.Store
	pool    *intropool.Pool
	gate    *gate.Gate
	presets *preset.Registry
}

func NewPublicHandlers(st *store.Store, pool *intropool.Pool, g *gate.Gate, presets *preset.Registry) *PublicHandlers {
	return &PublicHandlers{store: st, pool: pool, gate: g, presets: presets}
}

func (h *PublicHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "db unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

type poolStatusResponse struct {
	RemainingMicro   int64     `json:"remainingMicro"`
	RemainingCredits int64     `json:"remainingCredits"`
	HalfLifeMinutes  float64   `json:"halfLifeMinutes"`
	StartedAt        time.Time `json:"startedAt"`
	Exhausted        bool      `json:"exhausted"`
}

func (h *PublicHandlers) PoolStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.pool.Status(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "Internal error.")
			return
		}
		writeJSON(w, http.StatusOK, poolStatusResponse{
			RemainingMicro:   status.RemainingMicro,
			RemainingCredits: status.RemainingMicro / credit.MicroPerCredit,
			HalfLifeMinutes:  status.HalfLifeMinutes,
			StartedAt:        status.StartedAt,
			Exhausted:        status.Exhausted,
		})
	}
}

// Presets lists the user-facing catalogue plus the knob tables and the
// models available to the caller's tier.
func (h *PublicHandlers) Presets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tier, err := h.gate.ResolveTier(r.Context(), userID(r))
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "Internal error.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"presets": h.presets.List(),
			"lengths": []preset.ResponseLength{
				preset.ResolveResponseLength("brief"),
				preset.ResolveResponseLength("standard"),
				preset.ResolveResponseLength("extended"),
			},
			"formats": []preset.ResponseFormat{
				preset.ResolveResponseFormat("debate"),
				preset.ResolveResponseFormat("banter"),
				preset.ResolveResponseFormat("formal"),
			},
			"tier":   tier,
			"models": gate.AvailableModels(tier),
		})
	}
}
