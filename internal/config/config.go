// Package config provides configuration management for winbridge.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"winbridge/internal/hotkey"
	"winbridge/internal/logging"
)

// ErrInvalid marks configuration values that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	// Hotkeys are the global hotkey bindings, registered as one set
	Hotkeys []Binding `json:"hotkeys" yaml:"hotkeys" toml:"hotkeys"`

	// Input configures the low-level input hooks
	Input InputConfig `json:"input" yaml:"input" toml:"input"`

	// Logging configures log output
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`

	// Tray configures the notification area menu
	Tray TrayConfig `json:"tray" yaml:"tray" toml:"tray"`

	// Stream configures the WebSocket event stream
	Stream StreamConfig `json:"stream" yaml:"stream" toml:"stream"`
}

// Binding maps a hotkey combination to a label
type Binding struct {
	// Label names the action (e.g. "settings")
	Label string `json:"label" yaml:"label" toml:"label"`

	// Combo is the keyboard shortcut (e.g. "Ctrl+Alt+S")
	Combo string `json:"combo" yaml:"combo" toml:"combo"`
}

// InputConfig contains low-level hook settings
type InputConfig struct {
	// LogMoves includes mouse move events in the input log
	LogMoves bool `json:"log_moves" yaml:"log_moves" toml:"log_moves"`

	// BlockKeys are key names swallowed by the keyboard hook
	BlockKeys []string `json:"block_keys" yaml:"block_keys" toml:"block_keys"`
}

// LoggingConfig contains log settings
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" yaml:"level" toml:"level"`

	// Format is auto, text or json
	Format string `json:"format" yaml:"format" toml:"format"`

	// File is an optional log file written in addition to stderr
	File string `json:"file" yaml:"file" toml:"file"`
}

// TrayConfig contains notification area settings
type TrayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Tooltip string `json:"tooltip" yaml:"tooltip" toml:"tooltip"`
}

// StreamConfig contains event stream settings
type StreamConfig struct {
	// Listen is the host:port to serve events on; empty disables the stream
	Listen string `json:"listen" yaml:"listen" toml:"listen"`

	// Token, if set, must be sent as a bearer token by stream clients
	Token string `json:"token" yaml:"token" toml:"token"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Hotkeys: []Binding{
			{Label: "settings", Combo: "Ctrl+Alt+S"},
			{Label: "sleep", Combo: "Ctrl+Alt+P"},
			{Label: "escape", Combo: "Ctrl+Alt+Shift+Esc"},
		},
		Input: InputConfig{
			BlockKeys: []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Tray: TrayConfig{
			Enabled: true,
			Tooltip: "winbridge",
		},
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Hotkeys = slices.Clone(c.Hotkeys)
	out.Input.BlockKeys = slices.Clone(c.Input.BlockKeys)
	return &out
}

// Validate checks that every hotkey parses, labels are unique, blocked keys
// are known and logging settings are valid. All problems are reported.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Hotkeys))
	for i, b := range c.Hotkeys {
		if b.Label == "" {
			errs = append(errs, fmt.Errorf("%w: hotkeys[%d]: empty label", ErrInvalid, i))
		} else if seen[b.Label] {
			errs = append(errs, fmt.Errorf("%w: hotkeys[%d]: duplicate label %q", ErrInvalid, i, b.Label))
		}
		seen[b.Label] = true
		if _, err := hotkey.ParseCombination(b.Combo); err != nil {
			errs = append(errs, fmt.Errorf("%w: hotkeys[%d]: %v", ErrInvalid, i, err))
		}
	}
	for i, name := range c.Input.BlockKeys {
		if _, err := hotkey.ParseKey(name); err != nil {
			errs = append(errs, fmt.Errorf("%w: input.block_keys[%d]: %v", ErrInvalid, i, err))
		}
	}
	if c.Stream.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Stream.Listen); err != nil {
			errs = append(errs, fmt.Errorf("%w: stream.listen: %v", ErrInvalid, err))
		}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging.level: %v", ErrInvalid, err))
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging.format: %v", ErrInvalid, err))
	}
	return errors.Join(errs...)
}

// ApplyEnvOverrides applies WINBRIDGE_LOG_LEVEL, WINBRIDGE_LOG_FORMAT and
// WINBRIDGE_STREAM_TOKEN.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WINBRIDGE_STREAM_TOKEN"); v != "" {
		c.Stream.Token = v
	}
	if v := os.Getenv("WINBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WINBRIDGE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// HotkeySet builds the hotkey set of the bindings, labelled by Label.
func (c *Config) HotkeySet() (*hotkey.Set[string], error) {
	set := hotkey.NewSet[string]()
	for _, b := range c.Hotkeys {
		combo, err := hotkey.ParseCombination(b.Combo)
		if err != nil {
			return nil, fmt.Errorf("%w: hotkey %q: %v", ErrInvalid, b.Label, err)
		}
		set.AddCombination(b.Label, combo)
	}
	return set, nil
}

// BlockedKeys resolves Input.BlockKeys.
func (c *Config) BlockedKeys() (map[hotkey.Key]bool, error) {
	keys := make(map[hotkey.Key]bool, len(c.Input.BlockKeys))
	for _, name := range c.Input.BlockKeys {
		k, err := hotkey.ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("%w: block key: %v", ErrInvalid, err)
		}
		keys[k] = true
	}
	return keys, nil
}

// LoggingOptions converts the logging section for logging.New.
func (c *Config) LoggingOptions() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return logging.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return logging.Config{Level: level, Format: format, FilePath: c.Logging.File}, nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu        sync.Mutex
	path      string
	config    *Config
	onChanged []func(*Config)
}

// NewManager creates a configuration manager for path. An empty path uses
// DefaultPath.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Manager{
		path:   path,
		config: DefaultConfig(),
	}, nil
}

// DefaultPath returns the per-user configuration file path
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "winbridge")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "winbridge")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "winbridge")
	}

	return filepath.Join(configDir, "config.yaml"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.path
}

// Load reads the configuration from disk. A missing file leaves the defaults
// in place. An invalid file is rejected and the current configuration kept.
func (m *Manager) Load() error {
	cfg, err := readFile(m.path)
	if err != nil {
		return err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", m.path, err)
	}
	m.Set(cfg)
	return nil
}

func readFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(formatOf(path), data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk atomically
func (m *Manager) Save() error {
	m.mu.Lock()
	data, err := Encode(formatOf(m.path), m.config)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	slog.Info("configuration saved", "path", m.path, "bytes", len(data))
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Clone()
}

// Set updates the configuration and runs the change callbacks
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg.Clone()
	callbacks := slices.Clone(m.onChanged)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg.Clone())
	}
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = append(m.onChanged, fn)
}

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// formatOf picks the encoding from the file extension; unknown extensions
// are read as YAML.
func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown config format %q", s)
}

// Decode parses data into cfg. Fields missing from data keep their value.
func Decode(f Format, data []byte, cfg *Config) error {
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	}
	return nil
}

// Encode serializes cfg.
func Encode(f Format, cfg *Config) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode TOML: %w", err)
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode YAML: %w", err)
		}
		return buf.Bytes(), nil
	}
}
