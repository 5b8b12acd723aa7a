package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV" validate:"oneof=dev test prod"`
	Port           string        `mapstructure:"PORT" validate:"required,numeric"`
	LogLevel       string        `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error fatal panic disabled"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"gt=0"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL" validate:"omitempty,url"`

	AIBaseURL     string  `mapstructure:"AI_BASE_URL" validate:"omitempty,url"`
	AIModel       string  `mapstructure:"AI_MODEL" validate:"required_with=AIBaseURL"`
	AIAPIKey      string  `mapstructure:"AI_API_KEY"`
	AIMaxTokens   int     `mapstructure:"AI_MAX_TOKENS" validate:"gte=0"`
	AITemperature float64 `mapstructure:"AI_TEMPERATURE" validate:"gte=0,lte=2"`

	PolicyFile string `mapstructure:"POLICY_FILE" validate:"required"`
	LedgerFile string `mapstructure:"LEDGER_FILE"`

	GoogleCredentialsFile string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	GoogleTokenFile       string `mapstructure:"GOOGLE_TOKEN_FILE"`

	EscalationEmail         string `mapstructure:"ESCALATION_EMAIL" validate:"omitempty,email"`
	EscalationRecipientName string `mapstructure:"ESCALATION_RECIPIENT_NAME"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB" validate:"gte=0"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL" validate:"gt=0"`
}

var keys = []string{
	"ENV", "PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "REQUEST_TIMEOUT", "ADMIN_KEY", "DATABASE_URL",
	"AI_BASE_URL", "AI_MODEL", "AI_API_KEY", "AI_MAX_TOKENS", "AI_TEMPERATURE",
	"POLICY_FILE", "LEDGER_FILE", "GOOGLE_CREDENTIALS_FILE", "GOOGLE_TOKEN_FILE",
	"ESCALATION_EMAIL", "ESCALATION_RECIPIENT_NAME",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
}

// Load reads .env (when present) and the environment. The result is not
// validated; call Validate before using it to start a server.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()
	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "180s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("AI_MAX_TOKENS", 4096)
	v.SetDefault("AI_TEMPERATURE", 0.1)
	v.SetDefault("POLICY_FILE", "data/approval_matrix.json")
	v.SetDefault("LEDGER_FILE", "data/contract_history.json")
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json")
	v.SetDefault("GOOGLE_TOKEN_FILE", "token.json")
	v.SetDefault("ESCALATION_RECIPIENT_NAME", "Approver")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "24h")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

// Validate reports every malformed setting at once.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", f.Field(), f.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
