package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	// Assist is the chat-completion provider used for reply suggestions and
	// message classification. The key is optional: without it both features
	// degrade to a fixed placeholder instead of failing the server.
	AssistAPIKey  string `mapstructure:"ASSIST_API_KEY"`
	AssistBaseURL string `mapstructure:"ASSIST_BASE_URL"`
	AssistModel   string `mapstructure:"ASSIST_MODEL"`

	// Gateway is the outbound WhatsApp dispatch API. The key is optional:
	// without it replies are persisted but never dispatched (delivery_status
	// "skipped").
	GatewayAPIKey string `mapstructure:"GATEWAY_API_KEY"`
	GatewayURL    string `mapstructure:"GATEWAY_URL"`

	InboxRecentLimit int `mapstructure:"INBOX_RECENT_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ASSIST_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("ASSIST_MODEL", "gpt-4o-mini")
	v.SetDefault("GATEWAY_URL", "https://api.avisa.app/send-message")
	v.SetDefault("INBOX_RECENT_LIMIT", 500)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("ASSIST_API_KEY")
	v.BindEnv("ASSIST_BASE_URL")
	v.BindEnv("ASSIST_MODEL")
	v.BindEnv("GATEWAY_API_KEY")
	v.BindEnv("GATEWAY_URL")
	v.BindEnv("INBOX_RECENT_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. DATABASE_URL is
// always required. Outside development a JWT secret must be set so the API
// is never exposed unauthenticated by accident. The assist and gateway keys
// are deliberately optional; their absence disables the respective feature
// without affecting the rest of the server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not \"development\"")
	}
	if c.InboxRecentLimit <= 0 {
		return fmt.Errorf("INBOX_RECENT_LIMIT must be positive, got %d", c.InboxRecentLimit)
	}
	return nil
}
