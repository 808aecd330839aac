package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration, populated from environment
// variables (optionally via a .env file loaded in main).
type Config struct {
	// HTTP
	Addr      string
	RateLimit int // requests per hour per client
	RateBurst int

	// Target site
	TargetURL     string
	ReconnectWait time.Duration // allowance for anti-bot challenge reloads
	SettleWait    time.Duration // fixed wait after navigation

	// Browser
	BrowserMode string // "local" or "docker"
	ProfileDir  string
	SnapshotDir string
	Headless    bool
	BrowserBin  string // optional explicit Chrome binary (local mode)

	LogLevel string
}

// Load reads configuration from the environment, applying defaults.
// CHROME_PROFILE_DIR is the one knob most deployments set; everything
// else has workable defaults.
func Load() *Config {
	return &Config{
		Addr:          getEnv("LISTEN_ADDR", ":8001"),
		RateLimit:     getInt("RATE_LIMIT_PER_HOUR", 100),
		RateBurst:     getInt("RATE_LIMIT_BURST", 10),
		TargetURL:     getEnv("PERPLEXITY_URL", "https://www.perplexity.ai"),
		ReconnectWait: getDuration("RECONNECT_WAIT", 6*time.Second),
		SettleWait:    getDuration("SETTLE_WAIT", 10*time.Second),
		BrowserMode:   getEnv("BROWSER_MODE", "local"),
		ProfileDir:    getEnv("CHROME_PROFILE_DIR", "./chrome-debug-4"),
		SnapshotDir:   getEnv("PROFILE_SNAPSHOT_DIR", "./storage/profiles"),
		Headless:      getBool("BROWSER_HEADLESS", false),
		BrowserBin:    os.Getenv("CHROME_BIN"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
