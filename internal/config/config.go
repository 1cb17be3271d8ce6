package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	JWTSecret    string
	MongoURI     string
	DBName       string
	SkipAuth     bool
	Environment  string
	AppId        string
	LogToDB      bool
	PreviewLimit int64         // Max rows returned by a preview
	QueryTimeout time.Duration // Per request budget for preview queries
	AllowOrigins string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:       getEnv("DB_NAME", "go-crm"),
		SkipAuth:     getEnv("SKIP_AUTH", "false") == "true",
		Environment:  getEnv("ENVIRONMENT", "development"),
		AppId:        getEnv("APP_ID", "go-crm-reports"),
		LogToDB:      getEnv("LOG_TO_DB", "false") == "true",
		PreviewLimit: getEnvInt("PREVIEW_LIMIT", 1000),
		QueryTimeout: time.Duration(getEnvInt("QUERY_TIMEOUT_SECONDS", 15)) * time.Second,
		AllowOrigins: getEnv("ALLOW_ORIGINS", "http://localhost:3000, http://localhost:3001"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid %s=%q", key, value)
		return fallback
	}
	return n
}
