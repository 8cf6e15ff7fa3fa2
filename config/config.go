package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendDynamo = "dynamodb"
	BackendBadger = "badger"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port           string
	LogLevel       string
	LogDevelopment bool
	AllowedOrigins []string

	StoreBackend     string
	AWSRegion        string
	DynamoTable      string
	DynamoEndpoint   string
	BadgerPath       string
	BadgerInMemory   bool
	EventRetention   time.Duration
	S3Bucket         string
	PhotoURLLifetime time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	AIRatePerSec  float64
	SearchPortal  string
	SearchSource  string
	SearchTimeout time.Duration
	SearchMax     int
	SearchRetries int
	ChromeBin     string
}

// Load reads the .env file (if any) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: getEnvBool("LOG_DEVELOPMENT", false),
		AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),

		StoreBackend:     getEnv("STORE_BACKEND", BackendDynamo),
		AWSRegion:        getEnv("AWS_REGION", "eu-central-1"),
		DynamoTable:      getEnv("DYNAMODB_TABLE", "HomeMatch"),
		DynamoEndpoint:   getEnv("DYNAMODB_ENDPOINT", ""),
		BadgerPath:       getEnv("BADGER_PATH", "./data"),
		BadgerInMemory:   getEnvBool("BADGER_IN_MEMORY", false),
		EventRetention:   time.Duration(getEnvInt("EVENT_RETENTION_DAYS", 90)) * 24 * time.Hour,
		S3Bucket:         getEnv("S3_BUCKET_NAME", ""),
		PhotoURLLifetime: time.Duration(getEnvInt("PHOTO_URL_TTL_MINUTES", 5)) * time.Minute,

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIRatePerSec:  getEnvFloat("AI_REQUESTS_PER_SECOND", 2),
		SearchPortal:  getEnv("SEARCH_PORTAL_URL", "https://www.homegate.ch/{offerType}/real-estate/city-{location}/matching-list"),
		SearchSource:  getEnv("SEARCH_SOURCE", "homegate"),
		SearchTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 45)) * time.Second,
		SearchMax:     getEnvInt("SEARCH_MAX_RESULTS", 20),
		SearchRetries: getEnvInt("SEARCH_MAX_RETRIES", 2),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
