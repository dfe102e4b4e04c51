package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// InitEnvironmentVariables loads a .env file from the working directory.
// Production deployments set variables directly and carry no .env file.
func InitEnvironmentVariables() error {
	if os.Getenv("GO_ENV") == "production" {
		log.Info("running in production environment")
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			log.Debug("no .env file found")
			return nil
		}
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	return nil
}

// GetEnv fetches a required environment variable.
func GetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable not set", key)
	}
	return value, nil
}
