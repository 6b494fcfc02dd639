package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string

	// JWTSecret signs and verifies bearer tokens. It is the only
	// process-wide secret the authenticator depends on.
	JWTSecret     string
	FrontendURL   string
	SessionTTLHrs int
	RedisAddr     string
	RedisPassword string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURL     string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftRedirectURL  string

	GroqAPIKey  string
	GroqBaseURL string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILMIND_ENV")
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
		Port:          getEnvOrDefault("PORT", "4000"),
		JWTSecret:     os.Getenv("MAILMIND_JWT_SECRET"),
		FrontendURL:   getEnvOrDefault("MAILMIND_FRONTEND_URL", "http://localhost:5173"),
		SessionTTLHrs: 24,
		RedisAddr:     os.Getenv("MAILMIND_REDIS_ADDR"),
		RedisPassword: os.Getenv("MAILMIND_REDIS_PASSWORD"),

		DBHost:     getEnvOrDefault("MAILMIND_DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("MAILMIND_DB_PORT", "5432"),
		DBUsername: getEnvOrDefault("MAILMIND_DB_USER", "mailmind"),
		DBPassword: os.Getenv("MAILMIND_DB_PASSWORD"),
		DBName:     getEnvOrDefault("MAILMIND_DB_NAME", "mailmind"),
		DBSSLMode:  getEnvOrDefault("MAILMIND_DB_SSLMODE", "disable"),

		GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:    os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:     os.Getenv("GOOGLE_REDIRECT_URI"),
		MicrosoftClientID:     os.Getenv("MICROSOFT_CLIENT_ID"),
		MicrosoftClientSecret: os.Getenv("MICROSOFT_CLIENT_SECRET"),
		MicrosoftRedirectURL:  os.Getenv("MICROSOFT_REDIRECT_URI"),

		GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
		GroqBaseURL: getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("MAILMIND_JWT_SECRET is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("MAILMIND_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
