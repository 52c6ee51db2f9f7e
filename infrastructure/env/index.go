package env

import (
	"fingerprint.gateman.io/infrastructure/logger"
	"github.com/joho/godotenv"
)

// LoadEnv reads .env into the process environment. A missing file is not
// an error since production injects variables directly.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file loaded", logger.LoggerOptions{Key: "error", Data: err.Error()})
	}
}
