package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	// CRMDatabaseURL is the read-only CRM store candidate queries run
	// against. Empty disables direct execution; interpret then returns the
	// candidate query without rows.
	CRMDatabaseURL   string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	EnableHSTS       bool
	RateLimit        string

	Interpreter Interpreter
	Memory      Memory
}

// Interpreter tunes the question pipeline.
type Interpreter struct {
	// DirectExecThreshold is the minimum combined confidence for emitting a
	// candidate query instead of delegating to the AI collaborator.
	DirectExecThreshold float64
	// EditDistanceBound caps the Levenshtein distance for typo correction.
	EditDistanceBound int
	// CacheTTL bounds how long an interpretation stays in Redis.
	CacheTTL time.Duration
}

// Memory tunes the conversational memory engine.
type Memory struct {
	// MergeThreshold is the minimum similarity for consolidating two memories.
	MergeThreshold float64
	// RepetitionThreshold is the minimum similarity for flagging a question
	// as a repeat within RepetitionWindow.
	RepetitionThreshold float64
	RepetitionWindow    time.Duration
	// ConsolidationCadence enqueues a consolidation job every Nth interaction.
	ConsolidationCadence int
	// ProfileSampleRate and LearningSampleRate gate the deterministic
	// sampling of profile updates and lexicon learning.
	ProfileSampleRate  float64
	LearningSampleRate float64
	SamplingSeed       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CRMDatabaseURL:   getEnv("CRM_DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RateLimit:        getEnv("RATE_LIMIT", "100-M"),

		Interpreter: Interpreter{
			DirectExecThreshold: getEnvFloat("INTERPRETER_DIRECT_EXEC_THRESHOLD", 0.65),
			EditDistanceBound:   getEnvInt("INTERPRETER_EDIT_DISTANCE_BOUND", 2),
			CacheTTL:            getEnvDuration("INTERPRETER_CACHE_TTL", 15*time.Minute),
		},
		Memory: Memory{
			MergeThreshold:       getEnvFloat("MEMORY_MERGE_THRESHOLD", 0.70),
			RepetitionThreshold:  getEnvFloat("MEMORY_REPETITION_THRESHOLD", 0.85),
			RepetitionWindow:     getEnvDuration("MEMORY_REPETITION_WINDOW", 24*time.Hour),
			ConsolidationCadence: getEnvInt("MEMORY_CONSOLIDATION_CADENCE", 10),
			ProfileSampleRate:    getEnvFloat("MEMORY_PROFILE_SAMPLE_RATE", 0.10),
			LearningSampleRate:   getEnvFloat("MEMORY_LEARNING_SAMPLE_RATE", 0.20),
			SamplingSeed:         getEnv("MEMORY_SAMPLING_SEED", "oraculo"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (memory consolidation requires RabbitMQ)")
	}

	if cfg.Interpreter.DirectExecThreshold < 0 || cfg.Interpreter.DirectExecThreshold > 1 {
		return nil, fmt.Errorf("INTERPRETER_DIRECT_EXEC_THRESHOLD must be within [0,1]")
	}
	if cfg.Memory.ConsolidationCadence < 1 {
		return nil, fmt.Errorf("MEMORY_CONSOLIDATION_CADENCE must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
