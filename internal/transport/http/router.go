// Package httptransport wires the bout core to chi. Handlers stay thin:
// parse, call a service, map errors to statuses.
package httptransport

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"thepit/internal/bout"
	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/intropool"
	"thepit/internal/preset"
	"thepit/internal/store"
)

type Deps struct {
	Store   *store.Store
	Ledger  *credit.Ledger
	Pool    *intropool.Pool
	Gate    *gate.Gate
	Presets *preset.Registry
	Bouts   *bout.Service
}

func NewRouter(deps Deps) *chi.Mux {
	boutHandlers := NewBoutHandlers(deps.Bouts, deps.Store)
	publicHandlers := NewPublicHandlers(deps.Store, deps.Pool, deps.Gate, deps.Presets)
	creditHandlers := NewCreditHandlers(deps.Ledger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", publicHandlers.Health())
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/bouts/{bout_id}/run", boutHandlers.Run())
		r.Get("/bouts/{bout_id}", boutHandlers.Get())
		r.Get("/pool", publicHandlers.PoolStatus())
		r.Get("/presets", publicHandlers.Presets())
		r.Get("/credits", creditHandlers.Credits())
	})

	return r
}
