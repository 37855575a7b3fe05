package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config carries all process configuration. Values come from the
// environment; a .env file is honored for local runs.
type Config struct {
	StateTable  string `env:"STATE_TABLE" env-required:"true"`
	ParamPrefix string `env:"PARAM_PREFIX" env-required:"true"`

	ResumePDFPath  string   `env:"RESUME_PDF_PATH" env-default:"me/linkedin.pdf"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`

	MaxContextItems    int `env:"MAX_CONTEXT_ITEMS" env-default:"20"`
	MaxQuestionLength  int `env:"MAX_QUESTION_LENGTH" env-default:"1000"`
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" env-default:"10"`
	PromptTokenBudget  int `env:"PROMPT_TOKEN_BUDGET" env-default:"3500"`

	Environment string `env:"ENVIRONMENT" env-default:"production"`
}

// Load reads configuration from the environment. A missing .env file
// is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read environment: %w", err)
	}
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if cfg.ParamPrefix == "" {
		return nil, fmt.Errorf("config: PARAM_PREFIX must not be blank")
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs with production
// hardening (HSTS header, strict origin checks).
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
