package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CALSYNC_CONFIG",
		"CALSYNC_PORT",
		"CALSYNC_DATA_DIR",
		"CALSYNC_SERVER_HOST",
		"CALSYNC_SERVER_PORT",
		"CALSYNC_CLIENT_DATA_DIR",
		"CALSYNC_DISPLAY_NAME",
		"CALSYNC_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %q", cfg.LogLevel)
	}
	if cfg.Server.Port != 12345 || cfg.Server.DataDir != "server_data" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Client.ServerHost != "localhost" || cfg.Client.ServerPort != 12345 || cfg.Client.DataDir != "user_data" {
		t.Fatalf("unexpected client defaults: %+v", cfg.Client)
	}
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "calsync.yaml")
	raw := strings.Join([]string{
		"log_level: debug",
		"server:",
		"  port: 23456",
		"  data_dir: /srv/calsync",
		"client:",
		"  server_host: calendar.internal",
		"  display_name: alice",
	}, "\n")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CALSYNC_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Server.Port != 23456 || cfg.Server.DataDir != "/srv/calsync" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Client.ServerHost != "calendar.internal" || cfg.Client.DisplayName != "alice" {
		t.Fatalf("file values not applied: %+v", cfg.Client)
	}
	// Values the file omits keep their defaults.
	if cfg.Client.ServerPort != 12345 {
		t.Fatalf("omitted value lost its default: %d", cfg.Client.ServerPort)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "calsync.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 23456\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CALSYNC_CONFIG", path)
	t.Setenv("CALSYNC_PORT", "34567")
	t.Setenv("CALSYNC_SERVER_HOST", "10.0.0.5")
	t.Setenv("CALSYNC_CLIENT_DATA_DIR", "/home/alice/calsync")
	t.Setenv("CALSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 34567 {
		t.Fatalf("environment did not win: %d", cfg.Server.Port)
	}
	if cfg.Client.ServerHost != "10.0.0.5" || cfg.LogLevel != "warn" {
		t.Fatalf("environment overrides lost: %+v", cfg)
	}
	if cfg.Client.DataDir != "/home/alice/calsync" {
		t.Fatalf("client data dir override lost: %q", cfg.Client.DataDir)
	}
}

func TestLoad_AccumulatesInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALSYNC_PORT", "not-a-port")
	t.Setenv("CALSYNC_SERVER_PORT", "99999")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"CALSYNC_PORT", "CALSYNC_SERVER_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error does not name %s: %v", want, err)
		}
	}
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("CALSYNC_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	server := ServerConfig{Port: 12345, DataDir: "server_data"}
	if got := server.ListenAddr(); got != ":12345" {
		t.Fatalf("unexpected listen addr: %s", got)
	}
	if got := server.SnapshotPath(); got != filepath.Join("server_data", "shared_todos.txt") {
		t.Fatalf("unexpected snapshot path: %s", got)
	}

	client := ClientConfig{ServerHost: "localhost", ServerPort: 12345, DataDir: "user_data"}
	if got := client.ServerAddr(); got != "localhost:12345" {
		t.Fatalf("unexpected server addr: %s", got)
	}
	if got := client.CachePath("alice"); got != filepath.Join("user_data", "alice", "shared_cache.txt") {
		t.Fatalf("unexpected cache path: %s", got)
	}
}
