package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	APP_ENV    string
	APP_URL    string
	DB_URL     string
	JWT_SECRET string

	CORS_ORIGIN string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	STRIPE_PRODUCT_ID     string

	// Resend exposes an SMTP relay (smtp.resend.com, user "resend", API key as password).
	SMTP_HOST     string
	SMTP_PORT     string
	SMTP_USER     string
	SMTP_PASSWORD string
	SMTP_FROM     string

	OPENAI_API_KEY string
	OPENAI_MODEL   string

	REDIS_URL string

	S3_ENDPOINT   string
	S3_REGION     string
	S3_BUCKET     string
	S3_ACCESS_KEY string
	S3_SECRET_KEY string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string

	TRIAL_EXPIRY_INTERVAL time.Duration
)

// LoadEnv reads .env (if any) and the process environment.
// Only DB_URL and JWT_SECRET are required; integrations without keys are disabled.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	APP_ENV = getEnv("APP_ENV", "development")
	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "*")

	STRIPE_SECRET_KEY = getEnv("STRIPE_SECRET_KEY", "")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")
	STRIPE_PRODUCT_ID = getEnv("STRIPE_PRODUCT_ID", "")

	SMTP_HOST = getEnv("SMTP_HOST", "smtp.resend.com")
	SMTP_PORT = getEnv("SMTP_PORT", "587")
	SMTP_USER = getEnv("SMTP_USER", "resend")
	SMTP_PASSWORD = getEnv("SMTP_PASSWORD", "")
	SMTP_FROM = getEnv("SMTP_FROM", "TierTrainer24 <noreply@tiertrainer24.com>")

	OPENAI_API_KEY = getEnv("OPENAI_API_KEY", "")
	OPENAI_MODEL = getEnv("OPENAI_MODEL", "gpt-4o-mini")

	REDIS_URL = getEnv("REDIS_URL", "")

	S3_ENDPOINT = getEnv("S3_ENDPOINT", "")
	S3_REGION = getEnv("S3_REGION", "eu-central-1")
	S3_BUCKET = getEnv("S3_BUCKET", "pet-photos")
	S3_ACCESS_KEY = getEnv("S3_ACCESS_KEY", "")
	S3_SECRET_KEY = getEnv("S3_SECRET_KEY", "")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	TRIAL_EXPIRY_INTERVAL = getDuration("TRIAL_EXPIRY_INTERVAL", time.Hour)
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getDuration parses Go durations ("30m", "1h"). "0" or "" disables.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if raw == "" || raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}
