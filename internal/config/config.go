package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every setting the service reads at startup. It is built
// once in main and passed into component constructors; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	ServerAddr  string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiBaseURL string
	LLMTimeout    time.Duration

	SlackWebhookURL string
	SlackChannel    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

func LoadConfig() *Config {
	godotenv.Load()
	return &Config{
		ServerAddr:      getEnv("PORT", ":8000"),
		DatabaseDSN:     getEnv("DATABASE_DSN", "host=localhost user=moderator password=moderator dbname=moderator port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASS"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 30*time.Second),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SlackChannel:    getEnv("SLACK_CHANNEL", "#general"),
		SMTPHost:        getEnv("SMTP_HOST", "0.0.0.0"),
		SMTPPort:        getInt("SMTP_PORT", 1025),
		SMTPUsername:    os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASS"),
		FromEmail:       getEnv("FROM_EMAIL", "no-reply@modsentry.io"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
