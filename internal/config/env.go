package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	AwsAccessKey  string
	AwsSecretKey  string
	AwsRegion     string
	BucketName    string
	AIAPIKey      string
	EmbedModel    string
	GenModel      string
	JWTSecret     string
	Port          string
	TargetTokens  int
	IngestWorkers int
	EmbedWorkers  int
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AwsAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:  getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:     getEnv("AWS_REGION", "us-east-2"),
		BucketName:    getEnv("BUCKET_NAME", "atrium-assets"),
		AIAPIKey:      getEnv("GEMINI_API_KEY", ""),
		EmbedModel:    getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:      getEnv("GEN_MODEL", "gemini-1.5-flash"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		Port:          getEnv("PORT", "8080"),
		TargetTokens:  getEnvInt("CHUNK_TARGET_TOKENS", 500),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),
		EmbedWorkers:  getEnvInt("EMBED_WORKERS", 2),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
