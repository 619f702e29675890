package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const EnvironmentDevelopment = "development"

type Config struct {
	AuroraCreds    string
	AuroraHost     string
	AuroraPort     string
	AuroraDatabase string
	Environment    string
	ServerHost     string
	ServerPort     string
	LogLevel       string
	JWTSigningKey  string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, reading configuration from the environment")
	}

	return &Config{
		AuroraCreds:    getEnv("AURORA_CREDS", ""),
		AuroraHost:     getEnv("AURORA_HOST", ""),
		AuroraPort:     getEnv("AURORA_PORT", ""),
		AuroraDatabase: getEnv("AURORA_DATABASE", ""),
		Environment:    strings.ToLower(getEnv("ENVIRONMENT", "production")),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSigningKey:  getEnv("JWT_SIGNING_KEY", ""),
	}
}

// IsDevelopment reports whether transport encryption may be skipped.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvironmentDevelopment
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
