package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
	StorageNone      = "none"
)

type Config struct {
	Mode Mode `toml:"mode"`

	Port     string `toml:"port"`
	LogLevel string `toml:"log_level"`
	Timezone string `toml:"timezone"` // IANA name used for day grouping; empty = local

	GCPProjectID string `toml:"gcp_project"`
	GCPLocation  string `toml:"gcp_location"`
	ModelName    string `toml:"model_name"`

	StorageBackend string `toml:"storage_backend"` // "memory", "sqlite", "firestore" or "none"
	SQLitePath     string `toml:"sqlite_path"`

	UseMockLLM    bool `toml:"use_mock_llm"`   // true = echoing mock instead of Vertex
	RemoteEnabled bool `toml:"remote_enabled"` // false = classifier only

	RemoteTimeout       Duration `toml:"remote_timeout"`
	RemoteRatePerMinute int      `toml:"remote_rate_per_minute"`
	ContextWindow       int      `toml:"context_window"`
	HistoryLimit        int      `toml:"history_limit"`
	PersistTimeout      Duration `toml:"persist_timeout"`
	SessionIdleTTL      Duration `toml:"session_idle_ttl"` // 0 keeps sessions in memory forever
	Greeting            string   `toml:"greeting"`
}

// Duration decodes TOML strings like "8s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Defaults() *Config {
	return &Config{
		Mode:                ModeLocal,
		Port:                "8080",
		LogLevel:            "info",
		GCPLocation:         "us-central1",
		ModelName:           "gemini-2.5-flash-lite",
		StorageBackend:      StorageMemory,
		SQLitePath:          "data/farum.db",
		RemoteEnabled:       true,
		RemoteTimeout:       Duration{8 * time.Second},
		RemoteRatePerMinute: 0,
		ContextWindow:       10,
		HistoryLimit:        200,
		PersistTimeout:      Duration{5 * time.Second},
		SessionIdleTTL:      Duration{30 * time.Minute},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, def Duration) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return Duration{d}, nil
}

// Load builds the config: defaults, then the TOML file named by FARUM_CONFIG
// (if any), then env vars.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("FARUM_CONFIG"))
}

// LoadFile is Load with an explicit TOML path; an empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML overlays the file at path on cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	switch getEnv("FARUM_MODE", string(c.Mode)) {
	case "gcp":
		c.Mode = ModeGCP
	default:
		c.Mode = ModeLocal
	}

	c.Port = getEnv("FARUM_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("FARUM_LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnv("FARUM_TIMEZONE", c.Timezone)

	c.GCPProjectID = getEnv("FARUM_GCP_PROJECT", c.GCPProjectID)
	c.GCPLocation = getEnv("FARUM_GCP_LOCATION", c.GCPLocation)
	c.ModelName = getEnv("FARUM_MODEL_NAME", c.ModelName)

	c.StorageBackend = getEnv("FARUM_STORAGE_BACKEND", c.StorageBackend)
	c.SQLitePath = getEnv("FARUM_SQLITE_PATH", c.SQLitePath)
	c.Greeting = getEnv("FARUM_GREETING", c.Greeting)

	c.UseMockLLM = getBoolEnv("FARUM_USE_MOCK_LLM", c.UseMockLLM)
	c.RemoteEnabled = getBoolEnv("FARUM_REMOTE_ENABLED", c.RemoteEnabled)

	var errs []error
	var err error
	if c.RemoteTimeout, err = getDurationEnv("FARUM_REMOTE_TIMEOUT", c.RemoteTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.PersistTimeout, err = getDurationEnv("FARUM_PERSIST_TIMEOUT", c.PersistTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.SessionIdleTTL, err = getDurationEnv("FARUM_SESSION_IDLE_TTL", c.SessionIdleTTL); err != nil {
		errs = append(errs, err)
	}
	if c.RemoteRatePerMinute, err = getIntEnv("FARUM_REMOTE_RATE_PER_MINUTE", c.RemoteRatePerMinute); err != nil {
		errs = append(errs, err)
	}
	if c.ContextWindow, err = getIntEnv("FARUM_CONTEXT_WINDOW", c.ContextWindow); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryLimit, err = getIntEnv("FARUM_HISTORY_LIMIT", c.HistoryLimit); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		errs = append(errs, errors.New("FARUM_GCP_PROJECT must be set in gcp mode"))
	}

	switch c.StorageBackend {
	case StorageMemory, StorageNone:
	case StorageSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite storage requires FARUM_SQLITE_PATH"))
		}
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("firestore storage requires FARUM_GCP_PROJECT"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}

	if c.RemoteTimeout.Duration <= 0 {
		errs = append(errs, errors.New("remote timeout must be positive"))
	}
	if c.ContextWindow <= 0 {
		errs = append(errs, errors.New("context window must be positive"))
	}
	if c.SessionIdleTTL.Duration < 0 {
		errs = append(errs, errors.New("session idle ttl must not be negative"))
	}
	if c.RemoteRatePerMinute < 0 {
		errs = append(errs, errors.New("remote rate per minute must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves Timezone; empty means the process' local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
