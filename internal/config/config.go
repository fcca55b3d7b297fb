package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI string `validate:"required"`

	LineChannelSecret      string `validate:"required"`
	LineChannelAccessToken string `validate:"required"`

	AIAPIKey  string `validate:"required"`
	AIBaseURL string
	AIModel   string `validate:"required"`

	// Delay queue. Optional: without a token, delivery relies entirely on
	// the fallback sweep.
	QStashToken             string
	QStashURL               string
	QStashCurrentSigningKey string
	QStashNextSigningKey    string
	AppBaseURL              string

	ListenAddr string `validate:"required"`
	Timezone   string `validate:"required"`
	CronSecret string
	SweepCron  string
	Env        string

	// Reminders closer than this to now are rejected at create/update.
	MinScheduleBuffer time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	cfg := &Config{
		DatabaseURI:             os.Getenv("DATABASE_URI"),
		LineChannelSecret:       os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelAccessToken:  os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		AIAPIKey:                os.Getenv("AI_API_KEY"),
		AIBaseURL:               getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:                 getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		QStashToken:             os.Getenv("QSTASH_TOKEN"),
		QStashURL:               os.Getenv("QSTASH_URL"),
		QStashCurrentSigningKey: os.Getenv("QSTASH_CURRENT_SIGNING_KEY"),
		QStashNextSigningKey:    os.Getenv("QSTASH_NEXT_SIGNING_KEY"),
		AppBaseURL:              os.Getenv("APP_BASE_URL"),
		ListenAddr:              getEnvOrDefault("LISTEN_ADDR", ":8080"),
		Timezone:                getEnvOrDefault("TIMEZONE", "Asia/Taipei"),
		CronSecret:              os.Getenv("CRON_SECRET"),
		SweepCron:               os.Getenv("SWEEP_CRON"),
		Env:                     getEnvOrDefault("ENV", "development"),
		MinScheduleBuffer:       getEnvSeconds("MIN_SCHEDULE_BUFFER", 30),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.QStashToken != "" && cfg.AppBaseURL == "" {
		return nil, fmt.Errorf("APP_BASE_URL is required when QSTASH_TOKEN is set")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
