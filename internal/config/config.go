package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	DBHost        string
	DBPort        string
	DBUsername    string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	Port          string
	MailgunDomain string
	MailgunAPIKey string
	GroqAPIKey    string
	GroqModel     string
	S3Region      string
	S3Bucket      string
	S3Endpoint    string
	Timezone      string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("AXONMAIL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:   env,
		DBHost:        getEnvOrDefault("AXONMAIL_DB_HOST", "localhost"),
		DBPort:        getEnvOrDefault("AXONMAIL_DB_PORT", "5432"),
		DBUsername:    getEnvOrDefault("AXONMAIL_DB_USER", "axonmail"),
		DBPassword:    os.Getenv("AXONMAIL_DB_PASSWORD"),
		DBName:        getEnvOrDefault("AXONMAIL_DB_NAME", "axonmail"),
		DBSSLMode:     getEnvOrDefault("AXONMAIL_DB_SSLMODE", "disable"),
		DBMaxConns:    int32(getEnvIntOrDefault("AXONMAIL_DB_MAX_CONNS", 25)),
		DBMinConns:    int32(getEnvIntOrDefault("AXONMAIL_DB_MIN_CONNS", 5)),
		Port:          getEnvOrDefault("PORT", "8080"),
		MailgunDomain: os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),
		GroqAPIKey:    os.Getenv("GROQ_API_KEY"),
		GroqModel:     getEnvOrDefault("GROQ_MODEL", "llama-3.1-8b-instant"),
		S3Region:      getEnvOrDefault("AXONMAIL_S3_REGION", "us-east-1"),
		S3Bucket:      os.Getenv("AXONMAIL_S3_BUCKET"),
		S3Endpoint:    os.Getenv("AXONMAIL_S3_ENDPOINT"),
		Timezone:      getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("AXONMAIL_DB_PASSWORD is required")
	}

	if c.MailgunDomain == "" {
		return fmt.Errorf("MAILGUN_DOMAIN is required")
	}

	if c.MailgunAPIKey == "" {
		return fmt.Errorf("MAILGUN_API_KEY is required")
	}

	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}

	if c.S3Bucket == "" {
		return fmt.Errorf("AXONMAIL_S3_BUCKET is required")
	}

	if c.DBMaxConns < 1 {
		return fmt.Errorf("AXONMAIL_DB_MAX_CONNS must be at least 1: %d", c.DBMaxConns)
	}

	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("AXONMAIL_DB_MIN_CONNS must be between 0 and AXONMAIL_DB_MAX_CONNS: %d", c.DBMinConns)
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("AXONMAIL_DB_PORT is not a valid port number: %s", c.DBPort)
	}

	if !isValidPort(c.Port) {
		return fmt.Errorf("PORT is not a valid port number: %s", c.Port)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func isValidPort(s string) bool {
	port, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return port >= 1 && port <= 65535
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
