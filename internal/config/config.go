package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/navigare/internal/errors"
)

const (
	// ConfigFileName is the name of the default configuration file.
	ConfigFileName = "navigare.json"

	// DefaultBaseURL is the server visited when none is configured.
	DefaultBaseURL = "http://localhost:3000"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = "30s"

	// DefaultStoragePath is the bolt database path, relative to the config.
	DefaultStoragePath = ".navigare/session.db"

	// DefaultBridgePath is the WebSocket endpoint of the bridge.
	DefaultBridgePath = "/_navigare/ws"
)

// ConfigFileNames lists the files Load looks for, in order.
var ConfigFileNames = []string{ConfigFileName, "navigare.yaml", "navigare.yml"}

// Config represents the complete navigare configuration.
type Config struct {
	// BaseURL is the origin of the Navigare server.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// ArrayFormat is "brackets" (default) or "indices".
	ArrayFormat string `json:"arrayFormat,omitempty" yaml:"arrayFormat,omitempty"`

	// Version pins the asset version sent with requests. Empty sends the
	// current page's version.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Timeout bounds a single request (e.g., "30s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	Storage   StorageConfig   `json:"storage,omitempty" yaml:"storage,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	Bridge    BridgeConfig    `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	Log       LogConfig       `json:"log,omitempty" yaml:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StorageConfig selects session storage.
type StorageConfig struct {
	// Driver is "memory" (default) or "bolt".
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// Path is the bolt database file.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	// Namespace prefixes every metric (default: "navigare").
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// TracerName names the OpenTelemetry tracer (default: "navigare").
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`

	// MetricsAddr serves /metrics when set.
	MetricsAddr string `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
}

// BridgeConfig configures the WebSocket bridge.
type BridgeConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is debug, info (default), warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text (default) or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from the specified directory, trying each of
// ConfigFileNames.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("N040").
		WithDetail("No navigare.json found in " + dir).
		WithSuggestion("Create navigare.json or pass --config")
}

// LoadFile reads configuration from the specified file path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("N040").
				WithDetail("No config file at " + path)
		}
		return nil, errors.New("N041").Wrap(err)
	}

	cfg := &Config{}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("N041").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid " + formatName(path))
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path in the format its
// extension names.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("N041").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("N041").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ArrayFormat == "" {
		c.ArrayFormat = "brackets"
	}
	if c.Timeout == "" {
		c.Timeout = DefaultTimeout
	}

	// Storage
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "bolt" && c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
	}

	// Telemetry
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = "navigare"
	}
	if c.Telemetry.TracerName == "" {
		c.Telemetry.TracerName = "navigare"
	}

	// Bridge
	if c.Bridge.Path == "" {
		c.Bridge.Path = DefaultBridgePath
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("N042").
			WithDetail("baseURL must be an absolute http(s) URL, got " + c.BaseURL)
	}
	switch c.ArrayFormat {
	case "brackets", "indices":
	default:
		return errors.New("N042").
			WithDetail("arrayFormat must be brackets or indices, got " + c.ArrayFormat)
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return errors.New("N042").
			WithDetail("timeout must be a positive duration, got " + c.Timeout)
	}
	switch c.Storage.Driver {
	case "memory":
	case "bolt":
		if c.Storage.Path == "" {
			return errors.New("N042").WithDetail("storage.path is required for the bolt driver")
		}
	default:
		return errors.New("N042").
			WithDetail("storage.driver must be memory or bolt, got " + c.Storage.Driver)
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return errors.New("N042").
			WithDetail("bridge.path must start with /, got " + c.Bridge.Path)
	}
	if _, ok := levels[c.Log.Level]; !ok {
		return errors.New("N042").
			WithDetail("log.level must be debug, info, warn or error, got " + c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("N042").
			WithDetail("log.format must be text or json, got " + c.Log.Format)
	}
	return nil
}

// TimeoutDuration returns Timeout parsed, or the default on a bad value.
func (c *Config) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultTimeout)
	return d
}

// StoragePath returns the absolute path to the bolt database.
func (c *Config) StoragePath() string {
	path := c.Storage.Path
	if path == "" {
		path = DefaultStoragePath
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Logger builds the logger described by Log, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[c.Log.Level]}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the nearest directory
// holding a config file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("N040").
				WithDetail("No navigare.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or its nearest parent holding a config file.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func formatName(path string) string {
	if isYAML(path) {
		return "YAML"
	}
	return "JSON"
}
