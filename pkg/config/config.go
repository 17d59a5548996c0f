package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxPageSize is the largest page the following endpoint serves
const MaxPageSize = 100

// Config holds all configuration options for pxfollow
type Config struct {
	// Pixiv session and HTTP settings
	Pixiv PixivConfig `yaml:"pixiv" json:"pixiv"`

	// Fixed delays between requests
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// UI automation polling
	Automation AutomationConfig `yaml:"automation" json:"automation"`

	// Chrome connection for the UI strategy
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Retry policy for the session bootstrap request
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Run behavior
	Run RunConfig `yaml:"run" json:"run"`

	// Reports, journal and metrics output
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PixivConfig holds Pixiv-specific configuration
type PixivConfig struct {
	SessionCookie  string        `yaml:"session_cookie" json:"session_cookie"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	Language       string        `yaml:"language" json:"language"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// PacingConfig holds the fixed inter-request delays
type PacingConfig struct {
	PageSize      int           `yaml:"page_size" json:"page_size"`
	PageDelay     time.Duration `yaml:"page_delay" json:"page_delay"`
	MutationDelay time.Duration `yaml:"mutation_delay" json:"mutation_delay"`
}

// AutomationConfig holds DOM polling configuration
type AutomationConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls" json:"max_polls"`
}

// BrowserConfig holds Chrome DevTools connection settings
type BrowserConfig struct {
	DebuggerURL string        `yaml:"debugger_url" json:"debugger_url"`
	Headless    bool          `yaml:"headless" json:"headless"`
	UserDataDir string        `yaml:"user_data_dir" json:"user_data_dir"`
	EvalTimeout time.Duration `yaml:"eval_timeout" json:"eval_timeout"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// RunConfig holds run behavior switches
type RunConfig struct {
	Direction string `yaml:"direction" json:"direction"`
	Dedupe    bool   `yaml:"dedupe" json:"dedupe"`
}

// OutputConfig holds output locations
type OutputConfig struct {
	ReportDirectory string `yaml:"report_directory" json:"report_directory"`
	Journal         bool   `yaml:"journal" json:"journal"`
	// JournalDirectory overrides the platform data directory for run journals
	JournalDirectory string `yaml:"journal_directory" json:"journal_directory"`
	MetricsFile      string `yaml:"metrics_file" json:"metrics_file"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pixiv: PixivConfig{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			BaseURL:        "https://www.pixiv.net",
			Language:       "en",
			RequestTimeout: 30 * time.Second,
		},
		Pacing: PacingConfig{
			PageSize:      MaxPageSize,
			PageDelay:     300 * time.Millisecond,
			MutationDelay: 250 * time.Millisecond,
		},
		Automation: AutomationConfig{
			PollInterval: 100 * time.Millisecond,
			MaxPolls:     100,
		},
		Browser: BrowserConfig{
			Headless:    false,
			EvalTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Run: RunConfig{
			Direction: "private",
			Dedupe:    true,
		},
		Output: OutputConfig{
			ReportDirectory: "./reports",
			Journal:         true,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if cookie := os.Getenv("PXFOLLOW_SESSION_COOKIE"); cookie != "" {
		c.Pixiv.SessionCookie = cookie
	}
	if userAgent := os.Getenv("PXFOLLOW_USER_AGENT"); userAgent != "" {
		c.Pixiv.UserAgent = userAgent
	}
	if baseURL := os.Getenv("PXFOLLOW_BASE_URL"); baseURL != "" {
		c.Pixiv.BaseURL = baseURL
	}

	if v := os.Getenv("PXFOLLOW_PAGE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PXFOLLOW_PAGE_DELAY: %w", err))
		} else {
			c.Pacing.PageDelay = d
		}
	}
	if v := os.Getenv("PXFOLLOW_MUTATION_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PXFOLLOW_MUTATION_DELAY: %w", err))
		} else {
			c.Pacing.MutationDelay = d
		}
	}
	if v := os.Getenv("PXFOLLOW_MAX_POLLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PXFOLLOW_MAX_POLLS: %w", err))
		} else {
			c.Automation.MaxPolls = n
		}
	}

	if debuggerURL := os.Getenv("PXFOLLOW_DEBUGGER_URL"); debuggerURL != "" {
		c.Browser.DebuggerURL = debuggerURL
	}
	if direction := os.Getenv("PXFOLLOW_DIRECTION"); direction != "" {
		c.Run.Direction = direction
	}
	if notifEnabled := os.Getenv("PXFOLLOW_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}
	if logLevel := os.Getenv("PXFOLLOW_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range DefaultLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// DefaultLocations lists config file candidates in order of precedence
func DefaultLocations() []string {
	home := os.Getenv("HOME")
	return []string{
		".pxfollow.yaml",
		".pxfollow.yml",
		filepath.Join(home, ".config", "pxfollow", "config.yaml"),
		filepath.Join(home, ".config", "pxfollow", "config.yml"),
		filepath.Join(home, ".pxfollow.yaml"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Pixiv.BaseURL == "" {
		errs = append(errs, errors.New("pixiv base URL is required"))
	}
	if c.Pixiv.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Pacing.PageSize <= 0 || c.Pacing.PageSize > MaxPageSize {
		errs = append(errs, fmt.Errorf("page size must be between 1 and %d", MaxPageSize))
	}
	if c.Pacing.PageDelay <= 0 {
		errs = append(errs, errors.New("page delay must be positive"))
	}
	if c.Pacing.MutationDelay <= 0 {
		errs = append(errs, errors.New("mutation delay must be positive"))
	}

	if c.Automation.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Automation.MaxPolls <= 0 {
		errs = append(errs, errors.New("max polls must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	switch strings.ToLower(c.Run.Direction) {
	case "private", "public":
	default:
		errs = append(errs, fmt.Errorf("invalid direction %q (want private or public)", c.Run.Direction))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600 because the file may hold the session cookie
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookie, ok := flags["session-cookie"].(string); ok && cookie != "" {
		c.Pixiv.SessionCookie = cookie
	}
	if direction, ok := flags["direction"].(string); ok && direction != "" {
		c.Run.Direction = direction
	}
	if debuggerURL, ok := flags["debugger-url"].(string); ok && debuggerURL != "" {
		c.Browser.DebuggerURL = debuggerURL
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if reportDir, ok := flags["report-dir"].(string); ok && reportDir != "" {
		c.Output.ReportDirectory = reportDir
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Output.MetricsFile = metricsFile
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pxfollow.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
