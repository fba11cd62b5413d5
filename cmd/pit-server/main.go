package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"thepit/internal/bout"
	"thepit/internal/config"
	"thepit/internal/credit"
	"thepit/internal/gate"
	"thepit/internal/intropool"
	"thepit/internal/llm"
	"thepit/internal/logging"
	"thepit/internal/preset"
	"thepit/internal/ratelimit"
	"thepit/internal/store"
	httptransport "thepit/internal/transport/http"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	prices := credit.NewPriceTable(cfg.Credits)
	ledger := credit.NewLedger(st, int64(cfg.Credits.StartingCredits*credit.MicroPerCredit))
	pool := intropool.New(st)
	if err := pool.Seed(context.Background(), int64(cfg.Pool.InitialCredits*credit.MicroPerCredit), cfg.Pool.HalfLifeMinutes); err != nil {
		log.Fatal().Err(err).Msg("intro pool seed failed")
	}

	tierGate := gate.New(st, cfg.Server)
	presets := preset.NewRegistry()
	svc := bout.NewService(
		st,
		ledger,
		pool,
		tierGate,
		ratelimit.New(),
		presets,
		llm.NewAnthropic(cfg.Server.AnthropicAPIKey, cfg.Server.AnthropicBaseURL),
		prices,
		cfg.Server,
	)

	r := httptransport.NewRouter(httptransport.Deps{
		Store:   st,
		Ledger:  ledger,
		Pool:    pool,
		Gate:    tierGate,
		Presets: presets,
		Bouts:   svc,
	})

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
