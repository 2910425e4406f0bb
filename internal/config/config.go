package config

import (
	"os"
	"strconv"

	"ubltools/internal/logger"
)

// Config is the environment-driven configuration for the conversion pipeline.
// Everything is optional: without an OpenAI key the AI enhancement stage is
// disabled and the tool still converts documents from the extracted data
// alone.
type Config struct {
	// OpenAI Configuration. An empty API key disables the AI enhancer.
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float32

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() *Config {
	return &Config{
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature: getFloatEnv("OPENAI_TEMPERATURE", 0.1),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:     getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:         getEnv("LOG_OUTPUT", "stderr"),
	}
}

// AIEnabled reports whether the AI enhancement stage should run.
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
