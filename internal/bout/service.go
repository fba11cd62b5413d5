// Package bout is the execution-and-billing core: a validation
// pipeline that turns an inbound request into an immutable execution
// context (or a classified rejection), and a turn executor that streams
// the run and reconciles the exact economic consequence afterwards.
package bout

import (
	"thepit/internal/config"
	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/intropool"
	"thepit/internal/llm"
	"thepit/internal/preset"
	"thepit/internal/ratelimit"
	"thepit/internal/store"
)

type Service struct {
	store   *store.Store
	ledger  *credit.Ledger
	pool    *intropool.Pool
	gate    *gate.Gate
	limiter *ratelimit.Limiter
	presets *preset.Registry
	client  llm.Client
	prices  *credit.PriceTable
	cfg     config.ServerConfig
}

func NewService(
	st *store.Store,
	ledger *credit.Ledger,
	pool *intropool.Pool,
	g *gate.Gate,
	limiter *ratelimit.Limiter,
	presets *preset.Registry,
	client llm.Client,
	prices *credit.PriceTable,
	cfg config.ServerConfig,
) *Service {
	return &Service{
		store:   st,
		ledger:  ledger,
		pool:    pool,
		gate:    g,
		limiter: limiter,
		presets: presets,
		client:  client,
		prices:  prices,
		cfg:     cfg,
	}
}
