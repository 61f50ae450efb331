package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all service settings. Values come from the environment
// (a .env file is loaded by main before this runs) with sane defaults,
// so the binary starts with no configuration at all.
type Config struct {
	Addr string

	// Browser settings.
	Headless        bool
	BrowserMode     string // "local" execs Chrome, "docker" runs headless-shell in a container
	BrowserImage    string
	BrowserTimeout  time.Duration
	SelectorTimeout time.Duration
	MaxContexts     int64

	// Settle delays: fixed pauses after submit-style clicks where the
	// platforms expose no readiness signal to wait on. A known source of
	// flakiness, kept configurable.
	SettleDelay    time.Duration
	OTPSettleDelay time.Duration

	// Persistence.
	SQLitePath string
	CacheTTL   time.Duration

	// MockMode short-circuits browser driving and serves deterministic
	// demo data; the boundary then also enforces the demo OTP "123456".
	MockMode bool

	LogLevel string
}

// Load builds a Config from the environment.
func Load() *Config {
	return &Config{
		Addr:            ":" + getEnv("PORT", "8080"),
		Headless:        getBool("HEADLESS_BROWSER", true),
		BrowserMode:     getEnv("BROWSER_MODE", "local"),
		BrowserImage:    getEnv("BROWSER_IMAGE", "chromedp/headless-shell:latest"),
		BrowserTimeout:  getMillis("BROWSER_TIMEOUT_MS", 30000),
		SelectorTimeout: getMillis("SELECTOR_TIMEOUT_MS", 10000),
		MaxContexts:     int64(getInt("MAX_BROWSER_CONTEXTS", 10)),
		SettleDelay:     getMillis("SETTLE_DELAY_MS", 2000),
		OTPSettleDelay:  getMillis("OTP_SETTLE_DELAY_MS", 3000),
		SQLitePath:      getEnv("SQLITE_PATH", "./storage/sessions.db"),
		CacheTTL:        time.Duration(getInt("SESSION_CACHE_TTL_MIN", 30)) * time.Minute,
		MockMode:        getBool("USE_MOCK_DATA", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func getMillis(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Millisecond
}
