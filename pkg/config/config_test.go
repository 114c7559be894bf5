package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/routegraph/pkg/errors"
	"github.com/matzehuels/routegraph/pkg/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "redis"
url = "redis://localhost:6379/0"
prefix = "plant-1:"
ttl = "720h"

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.TTL != 720*time.Hour {
		t.Errorf("Store = %+v, want redis with 720h ttl", cfg.Store)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want default :8080", cfg.Server.Addr)
	}
	if lvl, _ := cfg.LogLevel(); lvl != log.DebugLevel {
		t.Errorf("LogLevel() = %v, want debug", lvl)
	}
	if got := cfg.Store.Keyer().SnapshotKey("MO-1"); got != "plant-1:snapshot:MO-1" {
		t.Errorf("Keyer().SnapshotKey() = %q, want scoped key", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"unknown backend", "[store]\nbackend = \"etcd\"\n", errors.ErrCodeInvalidConfig},
		{"missing url", "[store]\nbackend = \"postgres\"\n", errors.ErrCodeInvalidConfig},
		{"unknown key", "[store]\nbakend = \"file\"\n", errors.ErrCodeInvalidConfig},
		{"bad level", "[log]\nlevel = \"loud\"\n", errors.ErrCodeInvalidConfig},
		{"syntax", "[store\n", errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Load() code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing explicit) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestLoad_DefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPath, "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() without file error: %v", err)
	}
	if want := filepath.Join(dir, "data", "routegraph", "snapshots"); cfg.Store.Path != want {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, want)
	}

	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPath, path)
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() via env error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090 from %s", cfg.Server.Addr, EnvPath)
	}
}

func TestOpenStore(t *testing.T) {
	s, err := StoreConfig{Backend: BackendFile, Path: t.TempDir()}.OpenStore(t.Context())
	if err != nil {
		t.Fatalf("OpenStore(file) error: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*store.FileStore); !ok {
		t.Errorf("OpenStore(file) = %T, want *store.FileStore", s)
	}

	s, _ = StoreConfig{Backend: BackendNull}.OpenStore(t.Context())
	if _, ok := s.(*store.NullStore); !ok {
		t.Errorf("OpenStore(null) = %T, want *store.NullStore", s)
	}
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"info\"\n")
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	var got *Config
	l.OnChange(func(c *Config) { got = c })
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if got == nil || got.Log.Level != "warn" || l.Config().Log.Level != "warn" {
		t.Errorf("after Reload() level = %v, want warn", l.Config().Log.Level)
	}

	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Reload(); err == nil {
		t.Error("Reload() of an invalid file should fail")
	}
	if l.Config().Log.Level != "warn" {
		t.Error("a failed reload should keep the previous config")
	}
}

func TestLoader_Watch(t *testing.T) {
	path := writeConfig(t, "[log]\nlevel = \"info\"\n")
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}
	changed := make(chan *Config, 4)
	l.OnChange(func(c *Config) { changed <- c })

	stop, err := l.Watch()
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("[log]\nlevel = \"error\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// a truncating write may first be seen as an empty file
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Log.Level == "error" {
				return
			}
		case <-timeout:
			t.Fatalf("Watch() did not reload within 5s, level = %q", l.Config().Log.Level)
		}
	}
}
