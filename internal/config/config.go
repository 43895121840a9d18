package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	CryptoracleAPIKey  string
	CryptoracleBaseURL string

	KalibrAPIKey          string
	KalibrTenantID        string
	KalibrIntelligenceURL string
	KalibrGoal            string

	GoogleAPIKey string
	OpenAIAPIKey string
	ModelHigh    string
	ModelLow     string

	SentimentBadThreshold int

	VibeAPIKey     string
	AuthMaxSkew    time.Duration
	MonitorEnabled bool
	MonitorEvery   time.Duration

	TelegramBotToken string
	TelegramChatID   int64
}

func Load() *Config {
	cfg := &Config{
		Port:             strings.TrimSpace(os.Getenv("PORT")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		VibeAPIKey:       strings.TrimSpace(os.Getenv("VIBE_API_KEY")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, subscriptions and tx history are disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.VibeAPIKey == "" {
		log.Println("Warning: VIBE_API_KEY not set, authenticated routes will reject all requests")
	}

	cfg.CryptoracleAPIKey = strings.TrimSpace(os.Getenv("CRYPTORACLE_API_KEY"))
	if cfg.CryptoracleAPIKey == "" {
		log.Println("Warning: CRYPTORACLE_API_KEY not set, sentiment falls back to synthetic data")
	}
	cfg.CryptoracleBaseURL = strings.TrimSpace(os.Getenv("CRYPTORACLE_BASE_URL"))
	if cfg.CryptoracleBaseURL == "" {
		cfg.CryptoracleBaseURL = "https://api.cryptoracle.io/v1"
	}

	cfg.KalibrAPIKey = strings.TrimSpace(os.Getenv("KALIBR_API_KEY"))
	cfg.KalibrTenantID = strings.TrimSpace(os.Getenv("KALIBR_TENANT_ID"))
	if cfg.KalibrAPIKey == "" || cfg.KalibrTenantID == "" {
		log.Println("Warning: Kalibr credentials not set, model routing uses the static tier heuristic")
	}
	cfg.KalibrIntelligenceURL = strings.TrimSpace(os.Getenv("KALIBR_INTELLIGENCE_URL"))
	if cfg.KalibrIntelligenceURL == "" {
		cfg.KalibrIntelligenceURL = "https://kalibr-intelligence.fly.dev"
	}
	cfg.KalibrGoal = strings.TrimSpace(os.Getenv("KALIBR_GOAL"))
	if cfg.KalibrGoal == "" {
		cfg.KalibrGoal = "vibeguard_risk"
	}

	cfg.GoogleAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	if cfg.GoogleAPIKey == "" {
		cfg.GoogleAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if cfg.GoogleAPIKey == "" && cfg.OpenAIAPIKey == "" {
		log.Println("Warning: no inference API key set, risk analysis returns the safe default")
	}

	cfg.ModelHigh = strings.TrimSpace(os.Getenv("KALIBR_MODEL_HIGH"))
	if cfg.ModelHigh == "" {
		cfg.ModelHigh = "gemini-1.5-pro"
	}
	cfg.ModelLow = strings.TrimSpace(os.Getenv("KALIBR_MODEL_LOW"))
	if cfg.ModelLow == "" {
		cfg.ModelLow = "gemini-2.0-flash"
	}

	cfg.SentimentBadThreshold = 30
	if v := strings.TrimSpace(os.Getenv("SENTIMENT_BAD_THRESHOLD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			cfg.SentimentBadThreshold = n
		}
	}

	cfg.AuthMaxSkew = 5 * time.Minute
	if v := strings.TrimSpace(os.Getenv("VIBE_API_AUTH_MAX_SKEW_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AuthMaxSkew = time.Duration(n) * time.Millisecond
		}
	}

	cfg.MonitorEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MONITOR_ENABLED")), "true")

	cfg.MonitorEvery = 300 * time.Second
	if v := strings.TrimSpace(os.Getenv("MONITOR_INTERVAL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MonitorEvery = time.Duration(n) * time.Second
		}
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		}
	}

	return cfg
}
