package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"pyqbank/internal/logger"
)

// ErrConfig marks configuration errors so the CLI can map them to a
// distinct exit code.
var ErrConfig = errors.New("configuration error")

type Config struct {
	// LLM providers
	OpenAIAPIKey string
	XAIAPIKey    string
	OpenAIModel  string
	GrokModel    string

	// OCR (Google Cloud)
	OCRProvider           string // "vision" or "documentai"
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Database
	DatabaseURL string

	// Pipeline tuning
	ChunkSize      int // OCR pages per extraction call
	BatchSize      int // questions per annotation call
	MaxRetries     int // LLM attempts per call
	BatchDelaySecs int // sleep between annotation batches

	// File locations
	MarkdownDir string
	JSONDir     string

	// Logging
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		XAIAPIKey:             getEnv("XAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o"),
		GrokModel:             getEnv("GROK_MODEL", "grok-2-latest"),
		OCRProvider:           getEnv("OCR_PROVIDER", "vision"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		ChunkSize:             getIntEnv("EXTRACT_CHUNK_SIZE", 5),
		BatchSize:             getIntEnv("ANNOTATE_BATCH_SIZE", 5),
		MaxRetries:            getIntEnv("LLM_MAX_RETRIES", 4),
		BatchDelaySecs:        getIntEnv("ANNOTATE_BATCH_DELAY", 12),
		MarkdownDir:           getEnv("MARKDOWN_DIR", "markdown_files"),
		JSONDir:               getEnv("JSON_DIR", "json_files"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// RequireLLM validates that the key for the requested provider is set.
func (c *Config) RequireLLM(provider string) error {
	switch provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrConfig)
		}
	case "grok":
		if c.XAIAPIKey == "" {
			return fmt.Errorf("%w: XAI_API_KEY is required", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown LLM provider %q (expected grok or openai)", ErrConfig, provider)
	}
	return nil
}

// RequireOCR validates the Google Cloud settings for the selected OCR
// backend. Credentials themselves are checked by the client constructor.
func (c *Config) RequireOCR() error {
	switch c.OCRProvider {
	case "vision":
		// Vision only needs credentials
	case "documentai":
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT is required for documentai OCR", ErrConfig)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("%w: DOCUMENT_AI_PROCESSOR_ID is required for documentai OCR", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown OCR_PROVIDER %q (expected vision or documentai)", ErrConfig, c.OCRProvider)
	}
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" && os.Getenv("GOOGLE_CREDENTIALS") == "" {
		return fmt.Errorf("%w: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS", ErrConfig)
	}
	return nil
}

// RequireDB validates that a database URL is configured.
func (c *Config) RequireDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", ErrConfig)
	}
	return nil
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

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}
