package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Scenarios Scenarios

	Renderer      string
	ChromeBin     string
	SettleDelay   time.Duration
	RenderTimeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	MaxConcurrency int
	RateLimit      time.Duration

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	scenarios := DefaultScenarios(getEnv("POLLS_BASE_URL", DefaultBaseURL))
	if path := getEnv("SCENARIOS_FILE", ""); path != "" {
		merged, err := scenarios.MergeFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = merged
	}

	return &Config{
		Scenarios: scenarios,

		Renderer:      strings.ToLower(getEnv("RENDERER", RendererChrome)),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		SettleDelay:   getEnvMillis("SETTLE_MS", 3000),
		RenderTimeout: getEnvMillis("RENDER_TIMEOUT_MS", 60000),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: getEnvMillis("RETRY_BASE_MS", 2000),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimit:      getEnvMillis("RATE_LIMIT_MS", 1000),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Renderer names accepted by RENDERER.
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}
