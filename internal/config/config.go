package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root of a jobhunter profile.
type Config struct {
	Store        StoreConfig
	Searches     []SearchConfig
	Sources      SourcesConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Retry        RetryConfig
	Schedule     string // cron expression used by watch
}

// StoreConfig selects and locates the posting store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	Path   string `yaml:"path"`   // sqlite database file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// SearchConfig is one named search of the profile.
type SearchConfig struct {
	Name           string   `yaml:"name"`
	Keywords       []string `yaml:"keywords"`
	Location       string   `yaml:"location"`
	ExtendedRegion bool     `yaml:"extended_region"`
	Limit          int      `yaml:"limit"`
	Sources        []string `yaml:"sources"`
}

// SourcesConfig holds per-source settings.
type SourcesConfig struct {
	Adzuna AdzunaConfig  `yaml:"adzuna"`
	Boards []BoardConfig `yaml:"boards"`
}

// AdzunaConfig holds Adzuna API credentials. Empty fields fall back to the
// ADZUNA_APP_ID, ADZUNA_APP_KEY and ADZUNA_COUNTRY environment variables.
type AdzunaConfig struct {
	AppID   string `yaml:"app_id"`
	AppKey  string `yaml:"app_key"`
	Country string `yaml:"country"`
}

// BoardConfig describes a single company board exposed as a named source.
type BoardConfig struct {
	Name       string `yaml:"name"`
	ATS        string `yaml:"ats"` // "greenhouse", "lever" or "ashby"
	BoardToken string `yaml:"board_token"`
	Company    string `yaml:"company"`
	Enabled    bool   `yaml:"enabled"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "redis"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	RedisURL   string `yaml:"redis_url"`   // required if type is "redis"
	Stream     string `yaml:"stream"`
}

// RateLimitConfig controls per-backend request spacing.
type RateLimitConfig struct {
	MinDelay time.Duration
}

// RetryConfig controls retries of transient source failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

const (
	DefaultLimit    = 100
	DefaultDBPath   = "jobhunter.db"
	DefaultSchedule = "@daily"
)

var (
	DefaultKeywords = []string{"python"}
	DefaultSources  = []string{"remotive"}
)

// rawConfig is used for YAML unmarshaling (durations as strings).
type rawConfig struct {
	Store        StoreConfig        `yaml:"store"`
	Searches     []SearchConfig     `yaml:"searches"`
	Sources      SourcesConfig      `yaml:"sources"`
	Notification NotificationConfig `yaml:"notification"`
	RateLimit    struct {
		MinDelay string `yaml:"min_delay"`
	} `yaml:"rate_limit"`
	Retry struct {
		MaxRetries *int   `yaml:"max_retries"`
		BaseDelay  string `yaml:"base_delay"`
	} `yaml:"retry"`
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no profile file exists.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		// the zero profile always builds
		panic(err)
	}
	return cfg
}

// Load reads the profile at path and returns a validated Config. A .env file
// next to the profile is loaded first, without overriding variables already
// set, so ${VAR} references and Adzuna credentials can live there.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return build(raw)
}

// envRef matches ${NAME} references. A bare $ is left alone so passwords,
// tokens and keywords may contain it.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} with the value of NAME, empty when unset.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// LoadDotEnv loads environment variables from path if it exists.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func build(raw rawConfig) (*Config, error) {
	var err error

	minDelay := 2 * time.Second
	if raw.RateLimit.MinDelay != "" {
		minDelay, err = time.ParseDuration(raw.RateLimit.MinDelay)
		if err != nil {
			return nil, fmt.Errorf("parse rate_limit.min_delay %q: %w", raw.RateLimit.MinDelay, err)
		}
	}

	maxRetries := 2
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}
	baseDelay := 5 * time.Second
	if raw.Retry.BaseDelay != "" {
		baseDelay, err = time.ParseDuration(raw.Retry.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("parse retry.base_delay %q: %w", raw.Retry.BaseDelay, err)
		}
	}

	store := raw.Store
	if store.Driver == "" {
		store.Driver = "sqlite"
	}
	if store.Path == "" {
		store.Path = DefaultDBPath
	}

	searches := make([]SearchConfig, len(raw.Searches))
	for i, s := range raw.Searches {
		searches[i] = withSearchDefaults(s, i)
	}

	adzuna := raw.Sources.Adzuna
	adzuna.AppID = firstNonEmpty(adzuna.AppID, os.Getenv("ADZUNA_APP_ID"))
	adzuna.AppKey = firstNonEmpty(adzuna.AppKey, os.Getenv("ADZUNA_APP_KEY"))
	adzuna.Country = firstNonEmpty(adzuna.Country, os.Getenv("ADZUNA_COUNTRY"), "it")

	notification := raw.Notification
	if notification.Type == "" {
		notification.Type = "log"
	}

	cfg := &Config{
		Store:        store,
		Searches:     searches,
		Sources:      SourcesConfig{Adzuna: adzuna, Boards: raw.Sources.Boards},
		Notification: notification,
		RateLimit:    RateLimitConfig{MinDelay: minDelay},
		Retry:        RetryConfig{MaxRetries: maxRetries, BaseDelay: baseDelay},
		Schedule:     firstNonEmpty(raw.Schedule, DefaultSchedule),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withSearchDefaults(s SearchConfig, i int) SearchConfig {
	if s.Name == "" {
		s.Name = fmt.Sprintf("search-%d", i+1)
	}
	if len(s.Keywords) == 0 {
		s.Keywords = DefaultKeywords
	}
	if s.Limit == 0 {
		s.Limit = DefaultLimit
	}
	if len(s.Sources) == 0 {
		s.Sources = DefaultSources
	}
	return s
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	seen := make(map[string]bool)
	for _, s := range cfg.Searches {
		if s.Limit < 0 {
			return fmt.Errorf("search %q: limit must not be negative, got %d", s.Name, s.Limit)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate search name %q", s.Name)
		}
		seen[s.Name] = true
	}

	for _, b := range cfg.Sources.Boards {
		if b.Name == "" {
			return fmt.Errorf("sources.boards: every board needs a name")
		}
		switch b.ATS {
		case "greenhouse", "lever", "ashby":
		default:
			return fmt.Errorf("board %q: ats must be greenhouse, lever or ashby, got %q", b.Name, b.ATS)
		}
		if b.BoardToken == "" {
			return fmt.Errorf("board %q: board_token is required", b.Name)
		}
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "redis":
		if cfg.Notification.RedisURL == "" {
			return fmt.Errorf("notification.redis_url is required when type is \"redis\"")
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or redis, got %q", cfg.Notification.Type)
	}

	if cfg.RateLimit.MinDelay < 0 {
		return fmt.Errorf("rate_limit.min_delay must not be negative, got %v", cfg.RateLimit.MinDelay)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
