package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	KycWebhookSecret    string

	Risk      RiskConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

// RiskConfig carries the AML screening thresholds.
type RiskConfig struct {
	LargeTransactionThreshold decimal.Decimal
	DailyLimit                decimal.Decimal
	VelocityCount             int
	Window                    time.Duration
	BlockScore                int
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

type AuditConfig struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RedisStream  string
	KafkaBrokers []string
	KafkaTopic   string
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("RISK_LARGE_TRANSACTION_THRESHOLD", "100000")
	viper.SetDefault("RISK_DAILY_LIMIT", "250000")
	viper.SetDefault("RISK_VELOCITY_COUNT", 5)
	viper.SetDefault("RISK_WINDOW_HOURS", 24)
	viper.SetDefault("RISK_BLOCK_SCORE", 70)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("RATE_LIMIT_BURST", 50)
	viper.SetDefault("AUDIT_QUEUE_SIZE", 1024)
	viper.SetDefault("AUDIT_WORKERS", 2)
	viper.SetDefault("AUDIT_MAX_RETRIES", 3)
	viper.SetDefault("AUDIT_KAFKA_TOPIC", "audit-events")
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	large, err := decimal.NewFromString(viper.GetString("RISK_LARGE_TRANSACTION_THRESHOLD"))
	if err != nil {
		return nil, err
	}
	daily, err := decimal.NewFromString(viper.GetString("RISK_DAILY_LIMIT"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		KycWebhookSecret:    viper.GetString("KYC_WEBHOOK_SECRET"),
		Risk: RiskConfig{
			LargeTransactionThreshold: large,
			DailyLimit:                daily,
			VelocityCount:             viper.GetInt("RISK_VELOCITY_COUNT"),
			Window:                    time.Duration(viper.GetInt("RISK_WINDOW_HOURS")) * time.Hour,
			BlockScore:                viper.GetInt("RISK_BLOCK_SCORE"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			Burst:     viper.GetInt("RATE_LIMIT_BURST"),
		},
		Audit: AuditConfig{
			QueueSize:    viper.GetInt("AUDIT_QUEUE_SIZE"),
			Workers:      viper.GetInt("AUDIT_WORKERS"),
			MaxRetries:   viper.GetInt("AUDIT_MAX_RETRIES"),
			RedisStream:  viper.GetString("AUDIT_REDIS_STREAM"),
			KafkaBrokers: splitList(viper.GetString("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   viper.GetString("AUDIT_KAFKA_TOPIC"),
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
