package config

import (
	"encoding/base64"
	"log"
	"os"

	"github.com/joho/godotenv"

	util "attendance-tracker/pkg/utils"
)

type AppConfig struct {
	Port         string
	MongoURI     string
	PasetoSecret string
	Timezone     string
}

// LoadConfig loads configuration from the .env file, falling back to the
// process environment.
func LoadConfig() *AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using system environment variables")
	}

	secretBase64 := getEnv("PASETO_SECRET", "")
	if secretBase64 == "" {
		if suggestion, err := util.GenerateBase64Key(32); err == nil {
			log.Printf("Hint: set PASETO_SECRET to a freshly generated key, e.g. %s", suggestion)
		}
		log.Fatal("PASETO_SECRET is not set")
	}

	secretBytes, err := base64.URLEncoding.DecodeString(secretBase64)
	if err != nil {
		log.Fatalf("PASETO_SECRET is not a valid base64 URL-encoded string: %v", err)
	}
	if len(secretBytes) != 32 {
		log.Fatalf("PASETO_SECRET (decoded) must be exactly 32 bytes, got %d", len(secretBytes))
	}

	return &AppConfig{
		Port:         getEnv("PORT", "5000"),
		MongoURI:     getEnv("MONGO_URI", ""),
		PasetoSecret: secretBase64,
		Timezone:     getEnv("TIMEZONE", "Local"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
