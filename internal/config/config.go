// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jeranaias/cmdtree/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cmdtree configuration.
type Config struct {
	Messages    MessagesConfig    `toml:"messages" json:"messages"`
	Fuzzy       FuzzyConfig       `toml:"fuzzy" json:"fuzzy"`
	Cooldown    CooldownConfig    `toml:"cooldown" json:"cooldown"`
	Dispatch    DispatchConfig    `toml:"dispatch" json:"dispatch"`
	Definitions DefinitionsConfig `toml:"definitions" json:"definitions"`
	Audit       AuditConfig       `toml:"audit" json:"audit"`
	Logging     LoggingConfig     `toml:"logging" json:"logging"`
}

// MessagesConfig holds user-facing templates. Empty values use the built-in
// messages.
type MessagesConfig struct {
	PermissionDenied string `toml:"permission_denied" json:"permission_denied"`
	UnknownCommand   string `toml:"unknown_command" json:"unknown_command"`
	OnCooldown       string `toml:"on_cooldown" json:"on_cooldown"`
	RateLimited      string `toml:"rate_limited" json:"rate_limited"`
	InternalError    string `toml:"internal_error" json:"internal_error"`
	Usage            string `toml:"usage" json:"usage"`
	InvalidValue     string `toml:"invalid_value" json:"invalid_value"`
	IdentifiedOnly   string `toml:"identified_only" json:"identified_only"`
	AnonymousOnly    string `toml:"anonymous_only" json:"anonymous_only"`
}

// FuzzyConfig tunes "did you mean" suggestions.
type FuzzyConfig struct {
	Threshold      int    `toml:"threshold" json:"threshold" env:"CMDTREE_FUZZY_THRESHOLD"`
	MaxSuggestions int    `toml:"max_suggestions" json:"max_suggestions" env:"CMDTREE_FUZZY_MAX_SUGGESTIONS"`
	SingleTemplate string `toml:"single_template" json:"single_template"`
	MultiTemplate  string `toml:"multi_template" json:"multi_template"`
}

// CooldownConfig controls cooldown bypass and cleanup.
type CooldownConfig struct {
	BypassCapability    string `toml:"bypass_capability" json:"bypass_capability" env:"CMDTREE_COOLDOWN_BYPASS"`
	CleanupIntervalSecs int    `toml:"cleanup_interval_secs" json:"cleanup_interval_secs" env:"CMDTREE_COOLDOWN_CLEANUP_SECS"`
}

// CleanupInterval returns the cleanup period.
func (c CooldownConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSecs) * time.Second
}

// DispatchConfig controls async execution and per-invoker rate limiting.
type DispatchConfig struct {
	MaxConcurrent int     `toml:"max_concurrent" json:"max_concurrent" env:"CMDTREE_MAX_CONCURRENT"`
	MaxHistory    int     `toml:"max_history" json:"max_history" env:"CMDTREE_MAX_HISTORY"`
	RatePerSecond float64 `toml:"rate_per_second" json:"rate_per_second" env:"CMDTREE_RATE_PER_SECOND"`
	Burst         int     `toml:"burst" json:"burst" env:"CMDTREE_RATE_BURST"`
}

// DefinitionsConfig locates declarative command definitions.
type DefinitionsConfig struct {
	Dir        string `toml:"dir" json:"dir" env:"CMDTREE_DEFINITIONS_DIR"`
	Watch      bool   `toml:"watch" json:"watch" env:"CMDTREE_DEFINITIONS_WATCH"`
	DebounceMs int    `toml:"debounce_ms" json:"debounce_ms" env:"CMDTREE_DEFINITIONS_DEBOUNCE_MS"`
}

// Debounce returns the reload debounce period.
func (d DefinitionsConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceMs) * time.Millisecond
}

// AuditConfig controls the execution audit log.
type AuditConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" env:"CMDTREE_AUDIT_ENABLED"`
	Path    string `toml:"path" json:"path" env:"CMDTREE_AUDIT_PATH"`

	// RetentionDays prunes older entries. Zero keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" env:"CMDTREE_AUDIT_RETENTION_DAYS"`
}

// Retention returns how long entries are kept, or 0 for forever.
func (a AuditConfig) Retention() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}

// LoggingConfig controls the rotating log file.
type LoggingConfig struct {
	Dir        string `toml:"dir" json:"dir" env:"CMDTREE_LOG_DIR"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		Fuzzy: FuzzyConfig{
			Threshold:      3,
			MaxSuggestions: 3,
			SingleTemplate: "Did you mean '%s'?",
			MultiTemplate:  "Did you mean one of: %s?",
		},
		Cooldown: CooldownConfig{
			BypassCapability:    "cmdtree.cooldown.bypass",
			CleanupIntervalSecs: 300,
		},
		Dispatch: DispatchConfig{
			MaxConcurrent: 5,
			MaxHistory:    100,
			RatePerSecond: 0,
			Burst:         5,
		},
		Definitions: DefinitionsConfig{
			Watch:      true,
			DebounceMs: 250,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the cmdtree configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cmdtree"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefinitionsDir returns the configured definitions directory, defaulting to
// ~/.cmdtree/commands.
func (c *Config) DefinitionsDir() (string, error) {
	if c.Definitions.Dir != "" {
		return c.Definitions.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "commands"), nil
}

// AuditPath returns the configured audit database path, defaulting to
// ~/.cmdtree/audit.db.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audit.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. Environment
// overrides are applied last. A file that fails to parse is reported along
// with the defaults.
func Load() (*Config, error) {
	var loadErr error

	if path, err := ConfigPathTOML(); err == nil && fileExists(path) {
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		loadErr = err
	}

	if loadErr == nil {
		if path, err := ConfigPathJSON(); err == nil && fileExists(path) {
			cfg, err := LoadFromPath(path)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific TOML or JSON file.
// Keys absent from the file keep their default values.
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

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg and fills missing values.
// Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config keys: %v", undecoded)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file into cfg and fills missing values.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) error {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fillDefaults replaces zero numeric settings and empty fuzzy templates
// written explicitly in a file.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.Fuzzy.Threshold == 0 {
		cfg.Fuzzy.Threshold = d.Fuzzy.Threshold
	}
	if cfg.Fuzzy.MaxSuggestions == 0 {
		cfg.Fuzzy.MaxSuggestions = d.Fuzzy.MaxSuggestions
	}
	if cfg.Fuzzy.SingleTemplate == "" {
		cfg.Fuzzy.SingleTemplate = d.Fuzzy.SingleTemplate
	}
	if cfg.Fuzzy.MultiTemplate == "" {
		cfg.Fuzzy.MultiTemplate = d.Fuzzy.MultiTemplate
	}

	if cfg.Cooldown.CleanupIntervalSecs == 0 {
		cfg.Cooldown.CleanupIntervalSecs = d.Cooldown.CleanupIntervalSecs
	}

	if cfg.Dispatch.MaxConcurrent == 0 {
		cfg.Dispatch.MaxConcurrent = d.Dispatch.MaxConcurrent
	}
	if cfg.Dispatch.MaxHistory == 0 {
		cfg.Dispatch.MaxHistory = d.Dispatch.MaxHistory
	}
	if cfg.Dispatch.Burst == 0 {
		cfg.Dispatch.Burst = d.Dispatch.Burst
	}

	if cfg.Definitions.DebounceMs == 0 {
		cfg.Definitions.DebounceMs = d.Definitions.DebounceMs
	}

	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = d.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = d.Logging.MaxBackups
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = d.Logging.MaxAgeDays
	}
}

// ApplyEnvOverrides applies CMDTREE_* environment variables:
//
//   - CMDTREE_FUZZY_THRESHOLD, CMDTREE_FUZZY_MAX_SUGGESTIONS
//   - CMDTREE_COOLDOWN_BYPASS, CMDTREE_COOLDOWN_CLEANUP_SECS
//   - CMDTREE_MAX_CONCURRENT, CMDTREE_MAX_HISTORY
//   - CMDTREE_RATE_PER_SECOND, CMDTREE_RATE_BURST
//   - CMDTREE_DEFINITIONS_DIR, CMDTREE_DEFINITIONS_WATCH, CMDTREE_DEFINITIONS_DEBOUNCE_MS
//   - CMDTREE_AUDIT_ENABLED, CMDTREE_AUDIT_PATH
//   - CMDTREE_LOG_DIR
//
// Unset variables leave the current values alone.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := util.AtomicWrite(path, 0o600, cfg.WriteTOML); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WriteTOML encodes c as a commented TOML document.
func (c *Config) WriteTOML(w io.Writer) error {
	if _, err := io.WriteString(w, "# cmdtree configuration file\n\n"); err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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

// Validate checks value ranges and template placeholders.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Fuzzy.Threshold < 0 || c.Fuzzy.Threshold > 10 {
		add("fuzzy.threshold", "must be between 0 and 10, got %d", c.Fuzzy.Threshold)
	}
	if c.Fuzzy.MaxSuggestions < 1 {
		add("fuzzy.max_suggestions", "must be at least 1, got %d", c.Fuzzy.MaxSuggestions)
	}
	if strings.Count(c.Fuzzy.SingleTemplate, "%s") != 1 {
		add("fuzzy.single_template", "must contain exactly one %%s")
	}
	if strings.Count(c.Fuzzy.MultiTemplate, "%s") != 1 {
		add("fuzzy.multi_template", "must contain exactly one %%s")
	}

	if c.Cooldown.CleanupIntervalSecs < 1 {
		add("cooldown.cleanup_interval_secs", "must be positive, got %d", c.Cooldown.CleanupIntervalSecs)
	}

	if c.Dispatch.MaxConcurrent < 1 || c.Dispatch.MaxConcurrent > 256 {
		add("dispatch.max_concurrent", "must be between 1 and 256, got %d", c.Dispatch.MaxConcurrent)
	}
	if c.Dispatch.MaxHistory < 0 {
		add("dispatch.max_history", "must not be negative, got %d", c.Dispatch.MaxHistory)
	}
	if c.Dispatch.RatePerSecond < 0 {
		add("dispatch.rate_per_second", "must not be negative, got %g", c.Dispatch.RatePerSecond)
	}
	if c.Dispatch.Burst < 1 {
		add("dispatch.burst", "must be at least 1, got %d", c.Dispatch.Burst)
	}

	if c.Definitions.DebounceMs < 0 {
		add("definitions.debounce_ms", "must not be negative, got %d", c.Definitions.DebounceMs)
	}

	if c.Messages.OnCooldown != "" && !strings.Contains(c.Messages.OnCooldown, "{seconds}") {
		add("messages.on_cooldown", "must contain {seconds}")
	}
	if c.Messages.Usage != "" && !strings.Contains(c.Messages.Usage, "{usage}") {
		add("messages.usage", "must contain {usage}")
	}

	if c.Audit.RetentionDays < 0 {
		add("audit.retention_days", "must not be negative, got %d", c.Audit.RetentionDays)
	}

	if c.Logging.MaxSizeMB < 1 {
		add("logging.max_size_mb", "must be at least 1, got %d", c.Logging.MaxSizeMB)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration, loading it on first access.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
