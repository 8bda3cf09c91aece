package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string
	APP_ENV    string
	APP_URL    string

	CORS_ORIGIN string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	STRIPE_PRODUCT_ID     string

	SMTP_HOST      string
	SMTP_PORT      int
	SMTP_USERNAME  string
	SMTP_PASSWORD  string
	SMTP_FROM      string
	SMTP_FROM_NAME string

	NOTIFY_WORKERS    int
	NOTIFY_QUEUE_SIZE int

	LOG_LEVEL  string
	LOG_FORMAT string
	LOG_OUTPUT string

	MEDIA_ROOT string

	PROMOTION_EXPIRY_CRON    string
	SUBSCRIPTION_EXPIRY_CRON string
	RENEWAL_REMINDER_CRON    string
	RENEWAL_REMINDER_DAYS    int
)

// LoadEnv reads .env (if present) and then the process environment.
// Required keys abort the process when missing.
func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")
	APP_ENV = getEnv("APP_ENV", "development")
	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	CORS_ORIGIN = getEnv("CORS_ORIGIN", "http://localhost:5173")

	// Stripe is optional in development: webhook and checkout reply 500 without it.
	STRIPE_SECRET_KEY = getEnv("STRIPE_SECRET_KEY", "")
	STRIPE_WEBHOOK_SECRET = getEnv("STRIPE_WEBHOOK_SECRET", "")
	STRIPE_PRODUCT_ID = getEnv("STRIPE_PRODUCT_ID", "")

	SMTP_HOST = getEnv("SMTP_HOST", "")
	SMTP_PORT = getEnvInt("SMTP_PORT", 587)
	SMTP_USERNAME = getEnv("SMTP_USERNAME", "")
	SMTP_PASSWORD = getEnv("SMTP_PASSWORD", "")
	SMTP_FROM = getEnv("SMTP_FROM", "no-reply@localhost")
	SMTP_FROM_NAME = getEnv("SMTP_FROM_NAME", "Tourism Platform")

	NOTIFY_WORKERS = getEnvInt("NOTIFY_WORKERS", 2)
	NOTIFY_QUEUE_SIZE = getEnvInt("NOTIFY_QUEUE_SIZE", 256)

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FORMAT = getEnv("LOG_FORMAT", "text")
	LOG_OUTPUT = getEnv("LOG_OUTPUT", "stdout")

	MEDIA_ROOT = getEnv("MEDIA_ROOT", "./storage/media")

	PROMOTION_EXPIRY_CRON = getEnv("PROMOTION_EXPIRY_CRON", "@every 15m")
	SUBSCRIPTION_EXPIRY_CRON = getEnv("SUBSCRIPTION_EXPIRY_CRON", "0 2 * * *")
	RENEWAL_REMINDER_CRON = getEnv("RENEWAL_REMINDER_CRON", "0 10 * * *")
	RENEWAL_REMINDER_DAYS = getEnvInt("RENEWAL_REMINDER_DAYS", 7)
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

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}
