package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// Shared secret that grants an unrestricted research execution
	// context (no rate limits, no tier checks, no credit gates).
	ResearchAPIKey string `env:"RESEARCH_API_KEY"`

	// Comma-separated user ids always resolved to the top tier.
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	SubscriptionsEnabled bool `env:"SUBSCRIPTIONS_ENABLED" envDefault:"true"`
	CreditsEnabled       bool `env:"CREDITS_ENABLED" envDefault:"true"`
	ByokEnabled          bool `env:"BYOK_ENABLED" envDefault:"true"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
