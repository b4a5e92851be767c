package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Simulator SimulatorConfig
	App       AppConfig
}

type ServerConfig struct {
	Port             string
	ExecuteRateLimit float64 // requests per second on execution submission
	ExecuteRateBurst int
}

type SimulatorConfig struct {
	MaxConcurrentExecutions int
	HistoryLimit            int
	StepTimeScale           float64 // scales simulated step delays down for demo runs
	KnowledgeFile           string  // optional YAML override for the SAP knowledge base
	StatsLogSchedule        string  // cron spec for periodic stats logging, empty disables
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			ExecuteRateLimit: getEnvAsFloat("EXECUTE_RATE_LIMIT", 10),
			ExecuteRateBurst: getEnvAsInt("EXECUTE_RATE_BURST", 20),
		},
		Simulator: SimulatorConfig{
			MaxConcurrentExecutions: getEnvAsInt("MAX_CONCURRENT_EXECUTIONS", 3),
			HistoryLimit:            getEnvAsInt("HISTORY_LIMIT", 1000),
			StepTimeScale:           getEnvAsFloat("STEP_TIME_SCALE", 0.1),
			KnowledgeFile:           getEnv("KNOWLEDGE_FILE", ""),
			StatsLogSchedule:        getEnv("STATS_LOG_SCHEDULE", "0 * * * * *"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Simulator.MaxConcurrentExecutions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_EXECUTIONS must be at least 1")
	}

	if c.Simulator.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}
