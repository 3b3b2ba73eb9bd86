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

	APP_URL              string
	CORS_ORIGINS         string
	CORS_PREVIEW_SUFFIX  string
	PAYMENT_CALLBACK_URL string
	PAYMENT_MAX_AMOUNT   float64

	REDIS_URL string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	APP_URL = getEnv("APP_URL", "http://localhost:5173")
	CORS_ORIGINS = getEnv("CORS_ORIGINS", "http://localhost:5173")
	CORS_PREVIEW_SUFFIX = getEnv("CORS_PREVIEW_SUFFIX", "")
	PAYMENT_CALLBACK_URL = getEnv("PAYMENT_CALLBACK_URL", "")
	PAYMENT_MAX_AMOUNT = getEnvFloat("PAYMENT_MAX_AMOUNT", 10000)

	REDIS_URL = getEnv("REDIS_URL", "")

	// Google sign-in is optional; the auth handlers reject when unconfigured.
	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")
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

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Invalid %s=%q, using default %v", key, value, fallback)
	}
	return fallback
}
