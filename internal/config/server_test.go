package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/thepit?sslmode=disable")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if !cfg.SubscriptionsEnabled || !cfg.CreditsEnabled || !cfg.ByokEnabled {
		t.Fatalf("feature switches = %+v, want all on by default", cfg)
	}
	if cfg.AnthropicBaseURL != "https://api.anthropic.com" {
		t.Fatalf("AnthropicBaseURL = %q", cfg.AnthropicBaseURL)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/thepit?sslmode=disable")
	t.Setenv("ADMIN_USER_IDS", "user_a,user_b")
	t.Setenv("SUBSCRIPTIONS_ENABLED", "false")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[0] != "user_a" {
		t.Fatalf("AdminUserIDs = %v", cfg.AdminUserIDs)
	}
	if cfg.SubscriptionsEnabled {
		t.Fatal("SubscriptionsEnabled should parse false")
	}
}

func TestLoadCreditsDefaults(t *testing.T) {
	cfg, err := LoadCredits()
	if err != nil {
		t.Fatalf("LoadCredits() error = %v", err)
	}
	if cfg.CreditValueGBP != 0.01 {
		t.Fatalf("CreditValueGBP = %v, want 0.01", cfg.CreditValueGBP)
	}
	if cfg.StartingCredits != 500 {
		t.Fatalf("StartingCredits = %v, want 500", cfg.StartingCredits)
	}
	if cfg.OutputTokensPerTurn != 120 {
		t.Fatalf("OutputTokensPerTurn = %d, want 120", cfg.OutputTokensPerTurn)
	}
}

func TestLoadPoolDefaults(t *testing.T) {
	cfg, err := LoadPool()
	if err != nil {
		t.Fatalf("LoadPool() error = %v", err)
	}
	if cfg.InitialCredits != 15000 {
		t.Fatalf("InitialCredits = %v, want 15000", cfg.InitialCredits)
	}
	if cfg.HalfLifeMinutes != 4320 {
		t.Fatalf("HalfLifeMinutes = %v, want 4320", cfg.HalfLifeMinutes)
	}
}
