package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/navigare/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.ArrayFormat != "brackets" {
		t.Errorf("ArrayFormat = %q, want brackets", cfg.ArrayFormat)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if cfg.Bridge.Path != DefaultBridgePath {
		t.Errorf("Bridge.Path = %q, want %q", cfg.Bridge.Path, DefaultBridgePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !errors.HasCode(err, "N040") {
		t.Errorf("Load() on empty dir error = %v, want N040", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "baseURL": "https://app.example.com",
  "arrayFormat": "indices",
  "timeout": "5s",
  "storage": {"driver": "bolt"},
  "log": {"level": "debug", "format": "json"}
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "https://app.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ArrayFormat != "indices" {
		t.Errorf("ArrayFormat = %q, want indices", cfg.ArrayFormat)
	}
	if cfg.TimeoutDuration() != 5*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 5s", cfg.TimeoutDuration())
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("Storage.Path = %q, want default %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if want := filepath.Join(tmpDir, DefaultStoragePath); cfg.StoragePath() != want {
		t.Errorf("StoragePath() = %q, want %q", cfg.StoragePath(), want)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	yamlConfig := `baseURL: http://localhost:8080
telemetry:
  namespace: shop
  metricsAddr: ":9100"
bridge:
  addr: ":7070"
`
	if err := os.WriteFile(filepath.Join(tmpDir, "navigare.yaml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Telemetry.Namespace != "shop" || cfg.Telemetry.MetricsAddr != ":9100" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Telemetry.TracerName != "navigare" {
		t.Errorf("Telemetry.TracerName = %q, want default", cfg.Telemetry.TracerName)
	}
	if cfg.Bridge.Addr != ":7070" || cfg.Bridge.Path != DefaultBridgePath {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
}

func TestLoadFileParseError(t *testing.T) {
	tmpDir := t.TempDir()

	for name, content := range map[string]string{
		"bad.json": `{"baseURL": `,
		"bad.yml":  "baseURL: [unclosed",
	} {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFile(path)
		if !errors.HasCode(err, "N041") {
			t.Errorf("LoadFile(%s) error = %v, want N041", name, err)
		}
	}

	_, err := LoadFile(filepath.Join(tmpDir, "missing.json"))
	if !errors.HasCode(err, "N040") {
		t.Errorf("LoadFile(missing) error = %v, want N040", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative base", func(c *Config) { c.BaseURL = "/app" }, "baseURL"},
		{"ftp base", func(c *Config) { c.BaseURL = "ftp://host" }, "baseURL"},
		{"array format", func(c *Config) { c.ArrayFormat = "comma" }, "arrayFormat"},
		{"timeout", func(c *Config) { c.Timeout = "soon" }, "timeout"},
		{"negative timeout", func(c *Config) { c.Timeout = "-1s" }, "timeout"},
		{"driver", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"bolt without path", func(c *Config) { c.Storage.Driver = "bolt"; c.Storage.Path = "" }, "storage.path"},
		{"bridge path", func(c *Config) { c.Bridge.Path = "ws" }, "bridge.path"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, "N042") {
				t.Fatalf("Validate() error = %v, want N042", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() error = %q, want mention of %s", err.Error(), tt.field)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"navigare.json", "navigare.yml"} {
		cfg := New()
		cfg.BaseURL = "https://saved.example.com"
		cfg.Storage = StorageConfig{Driver: "bolt", Path: "/var/lib/navigare.db"}

		path := filepath.Join(tmpDir, name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s) error = %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s) error = %v", name, err)
		}
		if loaded.BaseURL != cfg.BaseURL || loaded.Storage != cfg.Storage {
			t.Errorf("%s round trip = %+v, want %+v", name, loaded, cfg)
		}
		if loaded.StoragePath() != "/var/lib/navigare.db" {
			t.Errorf("StoragePath() = %q, want absolute path kept", loaded.StoragePath())
		}
	}

	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Errorf("Exists() = %v/%v, want true/false", Exists(root), Exists(nested))
	}
}

func TestLogger(t *testing.T) {
	cfg := New()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("json output = %s", out)
	}
}
