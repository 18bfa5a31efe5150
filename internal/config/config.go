package config

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

type S3Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	Endpoint        string
}

type AIConfig struct {
	Provider    string // "openai", "azure", "dashscope" or empty for the heuristic fallback
	APIKey      string
	Endpoint    string
	Model       string
	Temperature float64
}

type Config struct {
	DB_URL              string
	Port                string
	JWTSecret           string
	Environment         string
	MaxUploadSize       int64
	DefaultStorageLimit int64
	CorsConfig          cors.Options
	S3                  S3Config
	AI                  AIConfig
}

var Envs = initConfig()

func initConfig() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Config{
		DB_URL:              getEnv("DB_URL", ""),
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment:         getEnv("ENV", "development"),
		MaxUploadSize:       getEnvInt64("MAX_UPLOAD_SIZE", 100<<20),
		DefaultStorageLimit: getEnvInt64("DEFAULT_STORAGE_LIMIT", 1<<30),
		CorsConfig:          CorsConfig(),
		S3: S3Config{
			AccountID:       getEnv("S3_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("S3_BUCKET_NAME", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
		},
		AI: AIConfig{
			Provider:    getEnv("AI_PROVIDER", ""),
			APIKey:      getEnv("AI_API_KEY", ""),
			Endpoint:    getEnv("AI_ENDPOINT", ""),
			Model:       getEnv("AI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat("AI_TEMPERATURE", 0.3),
		},
	}
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func CorsConfig() cors.Options {
	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173"), ",")
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
