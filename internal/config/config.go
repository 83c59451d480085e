// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/taxease-tui/internal/util"
)

// CurrentVersion is the config file format version.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete taxease configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Health  HealthConfig  `toml:"health" json:"health"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Archive ArchiveConfig `toml:"archive" json:"archive"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig describes how to reach the backend.
type APIConfig struct {
	// BaseURL is the API root including the /api prefix.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds every request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries is the number of extra attempts for reads. 0 disables retries.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RateLimit is requests per second. 0 disables throttling.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// Timeout returns the request timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// HealthConfig controls the startup readiness check.
type HealthConfig struct {
	// Retries is the number of extra probes after a failure.
	Retries      int `toml:"retries" json:"retries"`
	RetryDelayMs int `toml:"retry_delay_ms" json:"retry_delay_ms"`
}

// RetryDelay returns the first backoff interval.
func (h HealthConfig) RetryDelay() time.Duration {
	return time.Duration(h.RetryDelayMs) * time.Millisecond
}

// AuthConfig controls where credentials are kept.
type AuthConfig struct {
	// CredentialsPath defaults to <home>/credentials.json.
	CredentialsPath string `toml:"credentials_path" json:"credentials_path"`
	// Encrypt seals the credentials file with TAXEASE_PASSPHRASE.
	Encrypt bool `toml:"encrypt" json:"encrypt"`
}

// ChatConfig controls conversation lifecycle behavior.
type ChatConfig struct {
	// PreserveOnNew keeps the previous conversation on the server when a
	// new one is started.
	PreserveOnNew bool `toml:"preserve_on_new" json:"preserve_on_new"`
	// AutoTitle renames a new conversation after its first question.
	AutoTitle bool `toml:"auto_title" json:"auto_title"`
}

// ArchiveConfig controls the local transcript archive.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path defaults to <home>/archive.db.
	Path string `toml:"path" json:"path"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// Path defaults to <home>/logs/taxease.log.
	Path       string `toml:"path" json:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
}

// UIConfig controls terminal presentation.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the answer wrap width. 0 follows the terminal.
	WordWrap    int  `toml:"word_wrap" json:"word_wrap"`
	ShowSources bool `toml:"show_sources" json:"show_sources"`
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:     "http://localhost:8000/api",
			TimeoutSecs: 30,
			MaxRetries:  2,
			RateLimit:   5,
			RateBurst:   10,
		},
		Health: HealthConfig{
			Retries:      0,
			RetryDelayMs: 1000,
		},
		Chat: ChatConfig{
			AutoTitle: true,
		},
		Archive: ArchiveConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		UI: UIConfig{
			Theme:       "auto",
			ShowSources: true,
			ShowSidebar: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the taxease home directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv("TAXEASE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".taxease"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return inConfigDir("config.json")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// CredentialsPath resolves auth.credentials_path.
func (c *Config) CredentialsPath() (string, error) {
	if c.Auth.CredentialsPath != "" {
		return expandHome(c.Auth.CredentialsPath)
	}
	return inConfigDir("credentials.json")
}

// ArchivePath resolves archive.path.
func (c *Config) ArchivePath() (string, error) {
	if c.Archive.Path != "" {
		return expandHome(c.Archive.Path)
	}
	return inConfigDir("archive.db")
}

// LogPath resolves log.path.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return expandHome(c.Log.Path)
	}
	return inConfigDir(filepath.Join("logs", "taxease.log"))
}

// Passphrase returns the credential passphrase from the environment.
func Passphrase() string {
	return os.Getenv("TAXEASE_PASSPHRASE")
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the configuration file, applies .env and environment
// overrides, and validates the result. With no file present the defaults
// are used.
func Load() (*Config, error) {
	LoadDotEnv(".env")

	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(tomlPath); statErr == nil {
		return LoadFromPath(tomlPath)
	}

	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(jsonPath); statErr == nil {
		return LoadFromPath(jsonPath)
	}

	return finish(Default())
}

// LoadFromPath loads a specific TOML or JSON file over the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	// Best effort; some filesystems reject chmod
	_ = ensureSecurePermissions(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// ignored.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	body, err := cfg.TOML()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# taxease configuration file\n")
	buf.WriteString("# Generated by taxease - edit with care\n\n")
	buf.WriteString(body)

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// TOML renders the configuration as TOML.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid setting. It returns ValidateErrors or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("api.base_url", "invalid URL '%s', must be an absolute http or https URL", c.API.BaseURL)
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 300 {
		add("api.timeout_secs", "must be between 1 and 300, got %d", c.API.TimeoutSecs)
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		add("api.max_retries", "must be between 0 and 10, got %d", c.API.MaxRetries)
	}
	if c.API.RateLimit < 0 {
		add("api.rate_limit", "must not be negative")
	}
	if c.API.RateBurst < 1 {
		add("api.rate_burst", "must be at least 1, got %d", c.API.RateBurst)
	}

	if c.Health.Retries < 0 || c.Health.Retries > 20 {
		add("health.retries", "must be between 0 and 20, got %d", c.Health.Retries)
	}
	if c.Health.RetryDelayMs < 0 {
		add("health.retry_delay_ms", "must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		add("log.level", "invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 1 {
		add("log.max_size_mb", "must be at least 1, got %d", c.Log.MaxSizeMB)
	}
	if c.Log.MaxBackups < 0 {
		add("log.max_backups", "must not be negative")
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero setting.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = d.API.RateBurst
	}
	if c.Health.RetryDelayMs == 0 {
		c.Health.RetryDelayMs = d.Health.RetryDelayMs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//   - TAXEASE_API_URL: overrides api.base_url
//   - VITE_API_URL: same, read when TAXEASE_API_URL is unset
//   - TAXEASE_TIMEOUT: overrides api.timeout_secs
//   - TAXEASE_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("TAXEASE_API_URL"); u != "" {
		c.API.BaseURL = u
	} else if u := os.Getenv("VITE_API_URL"); u != "" {
		c.API.BaseURL = u
	}

	if t := os.Getenv("TAXEASE_TIMEOUT"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil {
			c.API.TimeoutSecs = secs
		} else if d, err := time.ParseDuration(t); err == nil {
			c.API.TimeoutSecs = int(d / time.Second)
		}
	}

	if lvl := os.Getenv("TAXEASE_LOG_LEVEL"); lvl != "" {
		c.Log.Level = lvl
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its dotted TOML key (e.g. "api.timeout_secs").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its dotted TOML key. String values are converted
// to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a field", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == strings.ToLower(name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

// setFieldValue sets a field from a value, converting strings as needed.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				switch strings.ToLower(s) {
				case "yes", "on":
					b = true
				case "no", "off":
					b = false
				default:
					return fmt.Errorf("invalid boolean value: %q", s)
				}
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() != reflect.Struct {
			keys = append(keys, tomlName(f))
			continue
		}
		section := tomlName(f)
		for j := 0; j < f.Type.NumField(); j++ {
			keys = append(keys, section+"."+tomlName(f.Type.Field(j)))
		}
	}
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
