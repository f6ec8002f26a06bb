package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/querystorm/internal/config/loader"
	"github.com/dshills/querystorm/internal/logging"
)

// isolatedEnv keeps tests independent of the real QUERYSTORM_ environment.
func isolatedEnv() loader.Loader {
	return loader.NewEnvLoader("QSTEST_")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Console.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Console.Debounce)
	}
	if !cfg.Console.SeedInitial {
		t.Error("SeedInitial should default to true")
	}
	if cfg.LogLevel() != logging.LevelInfo {
		t.Errorf("LogLevel() = %v, want info", cfg.LogLevel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero debounce", func(c *Config) { c.Console.Debounce = 0 }},
		{"negative max versions", func(c *Config) { c.Console.MaxVersions = -1 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = BackendRedis; c.Store.RedisAddr = "" }},
		{"unknown provider", func(c *Config) { c.AI.Provider = "oracle" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{Env: isolatedEnv()})
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if *cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", *cfg)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	fsys := loader.MapFS{
		"querystorm.toml": `
[console]
debounce = "750ms"
max_versions = 20

[store]
backend = "memory"

[logging]
level = "debug"
`,
	}

	cfg, err := Load(Options{Path: "querystorm.toml", FS: fsys, Env: isolatedEnv()})
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Console.Debounce != 750*time.Millisecond {
		t.Errorf("Debounce = %v, want 750ms", cfg.Console.Debounce)
	}
	if cfg.Console.MaxVersions != 20 {
		t.Errorf("MaxVersions = %d, want 20", cfg.Console.MaxVersions)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.LogLevel() != logging.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel())
	}
	// Untouched values keep their defaults
	if !cfg.Console.SeedInitial {
		t.Error("SeedInitial should keep its default")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	fsys := loader.MapFS{
		"qs.yaml": "server:\n  addr: \":9000\"\nai:\n  timeout: 5s\n",
	}

	cfg, err := Load(Options{Path: "qs.yaml", FS: fsys, Env: isolatedEnv()})
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want :9000", cfg.Server.Addr)
	}
	if cfg.AI.Timeout != 5*time.Second {
		t.Errorf("AI.Timeout = %v, want 5s", cfg.AI.Timeout)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(Options{Path: "absent.toml", FS: loader.MapFS{}, Env: isolatedEnv()})
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if *cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", *cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	fsys := loader.MapFS{
		"qs.toml": "[server]\naddr = \":1000\"\n[console]\nmax_versions = 10\n",
	}
	t.Setenv("QSTEST_SERVER_ADDR", ":2000")
	t.Setenv("QSTEST_CONSOLE_MAX_VERSIONS", "30")

	cfg, err := Load(Options{
		Path:      "qs.toml",
		FS:        fsys,
		Env:       isolatedEnv(),
		Overrides: map[string]any{"server.addr": ":3000"},
	})
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("Server.Addr = %q, want override :3000", cfg.Server.Addr)
	}
	if cfg.Console.MaxVersions != 30 {
		t.Errorf("MaxVersions = %d, want env value 30", cfg.Console.MaxVersions)
	}
}

func TestLoadInvalid(t *testing.T) {
	fsys := loader.MapFS{"qs.toml": "[store]\nbackend = \"mongo\"\n"}
	_, err := Load(Options{Path: "qs.toml", FS: fsys, Env: isolatedEnv()})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadParseError(t *testing.T) {
	fsys := loader.MapFS{"qs.toml": "[console\n"}
	_, err := Load(Options{Path: "qs.toml", FS: fsys, Env: isolatedEnv()})
	var perr *loader.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("Load error = %v, want *loader.ParseError", err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "querystorm.toml")
	if err := os.WriteFile(path, []byte("[console]\nmax_versions = 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 4)
	w, err := Watch(Options{Path: path, Env: isolatedEnv()}, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[console]\nmax_versions = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Console.MaxVersions != 7 {
			t.Errorf("MaxVersions = %d, want 7", cfg.Console.MaxVersions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatchRequiresPath(t *testing.T) {
	if _, err := Watch(Options{}, 0, func(*Config, error) {}); err == nil {
		t.Error("Watch without path should fail")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(Options{Path: filepath.Join(dir, "qs.toml"), Env: isolatedEnv()}, 0, func(*Config, error) {})
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}
