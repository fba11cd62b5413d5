package config

import "github.com/caarlos0/env/v11"

// CreditsConfig carries every tunable of the credit economy. Prices and
// pool constants are configuration, not code: the same binary serves
// different economies by environment alone.
type CreditsConfig struct {
	// Value of one user-facing credit in GBP. One credit is 100 micro.
	CreditValueGBP float64 `env:"CREDIT_VALUE_GBP" envDefault:"0.01"`

	// Balance granted when a credit account is first created.
	StartingCredits float64 `env:"CREDITS_STARTING_CREDITS" envDefault:"500"`

	// Margin applied on top of raw provider token cost.
	PlatformMargin float64 `env:"CREDIT_PLATFORM_MARGIN" envDefault:"0.10"`

	// Estimation knobs for preauthorization.
	OutputTokensPerTurn int     `env:"CREDIT_OUTPUT_TOKENS_PER_TURN" envDefault:"120"`
	InputFactor         float64 `env:"CREDIT_INPUT_FACTOR" envDefault:"5.5"`
	TokenCharsPer       int     `env:"CREDIT_TOKEN_CHARS_PER" envDefault:"4"`

	// BYOK platform fee: flat per-1K-token rate with a floor minimum.
	ByokFeeGBPPer1K float64 `env:"BYOK_FEE_GBP_PER_1K_TOKENS" envDefault:"0.0002"`
	ByokMinGBP      float64 `env:"BYOK_MIN_GBP" envDefault:"0.001"`

	// Optional JSON override of the per-model price table,
	// {"model-id": {"in": gbpPerMTok, "out": gbpPerMTok}}.
	ModelPricesJSON string `env:"MODEL_PRICES_GBP_JSON"`
}

// PoolConfig seeds the shared anonymous intro pool on first boot.
type PoolConfig struct {
	InitialCredits  float64 `env:"INTRO_POOL_TOTAL_CREDITS" envDefault:"15000"`
	HalfLifeMinutes float64 `env:"INTRO_POOL_HALF_LIFE_MINUTES" envDefault:"4320"`
}

func LoadCredits() (CreditsConfig, error) {
	var cfg CreditsConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func LoadPool() (PoolConfig, error) {
	var cfg PoolConfig
	err := env.Parse(&cfg)
	return cfg, err
}
