package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the diffjam daemon.
type Config struct {
	// CDP connection settings
	CDPAddress     string
	CDPPort        int
	ConnectBrowser bool
	TabURLFilter   string
	ReloadOnAttach bool

	// Optional local browser
	LaunchBrowser     bool
	BrowserProfileDir string
	BrowserStartURL   string
	BrowserHeadless   bool

	// Control API
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Report journal
	DataDir         string
	MaxFileSizeMB   int
	BufferSize      int
	JournalCaptures bool
	JournalReports  bool

	// Diff behaviour
	MaxBodyBytes int
	StartEnabled bool
	LenientJSON  bool
	WatchFile    string

	NotifyEndpoint string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		ConnectBrowser:    getEnvBoolOrDefault("DIFFJAM_CONNECT_BROWSER", true),
		TabURLFilter:      getEnvOrDefault("DIFFJAM_TAB_URL_FILTER", ""),
		ReloadOnAttach:    getEnvBoolOrDefault("DIFFJAM_RELOAD_ON_ATTACH", false),
		LaunchBrowser:     getEnvBoolOrDefault("DIFFJAM_LAUNCH_BROWSER", false),
		BrowserProfileDir: getEnvOrDefault("DIFFJAM_BROWSER_PROFILE_DIR", "./diffjam_data/browser-profile"),
		BrowserStartURL:   getEnvOrDefault("DIFFJAM_BROWSER_START_URL", "about:blank"),
		BrowserHeadless:   getEnvBoolOrDefault("DIFFJAM_BROWSER_HEADLESS", false),
		BindAddr:          getEnvOrDefault("DIFFJAM_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:    getEnvListOrDefault("DIFFJAM_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192"}),
		PortAutoFallback:  getEnvBoolOrDefault("DIFFJAM_PORT_AUTO_FALLBACK", true),
		DataDir:           getEnvOrDefault("DIFFJAM_DATA_DIR", "./diffjam_data"),
		MaxFileSizeMB:     getEnvIntOrDefault("DIFFJAM_MAX_FILE_SIZE_MB", 100),
		BufferSize:        getEnvIntOrDefault("DIFFJAM_BUFFER_SIZE", 1000),
		JournalCaptures:   getEnvBoolOrDefault("DIFFJAM_JOURNAL_CAPTURES", false),
		JournalReports:    getEnvBoolOrDefault("DIFFJAM_JOURNAL_REPORTS", true),
		MaxBodyBytes:      getEnvIntOrDefault("DIFFJAM_MAX_BODY_BYTES", 5*1024*1024),
		StartEnabled:      getEnvBoolOrDefault("DIFFJAM_START_ENABLED", false),
		LenientJSON:       getEnvBoolOrDefault("DIFFJAM_LENIENT_JSON", false),
		WatchFile:         getEnvOrDefault("DIFFJAM_WATCH_FILE", ""),
		NotifyEndpoint:    getEnvOrDefault("DIFFJAM_NOTIFY_ENDPOINT", ""),
		LogLevel:          strings.ToLower(getEnvOrDefault("DIFFJAM_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("DIFFJAM_LOG_FILE", "logs/diffjam.log"),
	}

	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("DIFFJAM_MAX_BODY_BYTES must not be negative, got %d", cfg.MaxBodyBytes)
	}
	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint used by chromedp remote allocator.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
