package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the listener and storage settings of the sync server.
type ServerConfig struct {
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// ClientConfig holds the connection and storage settings of the sync client.
type ClientConfig struct {
	ServerHost  string `yaml:"server_host"`
	ServerPort  int    `yaml:"server_port"`
	DataDir     string `yaml:"data_dir"`
	DisplayName string `yaml:"display_name"`
}

// Config captures configuration for both binaries. Values resolve as
// defaults, then the optional YAML file named by CALSYNC_CONFIG, then
// environment overrides.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	Server   ServerConfig `yaml:"server"`
	Client   ClientConfig `yaml:"client"`
}

// Load resolves the configuration from the current process environment.
//
// Invalid values are accumulated and reported together rather than one at a
// time.
func Load() (Config, error) {
	cfg := Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:    12345,
			DataDir: "server_data",
		},
		Client: ClientConfig{
			ServerHost: "localhost",
			ServerPort: 12345,
			DataDir:    "user_data",
		},
	}

	if path := strings.TrimSpace(os.Getenv("CALSYNC_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("CALSYNC_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CALSYNC_PORT")
		} else {
			cfg.Server.Port = port
		}
	}

	if dir := strings.TrimSpace(os.Getenv("CALSYNC_DATA_DIR")); dir != "" {
		cfg.Server.DataDir = dir
	}

	if host := strings.TrimSpace(os.Getenv("CALSYNC_SERVER_HOST")); host != "" {
		cfg.Client.ServerHost = host
	}

	if value := strings.TrimSpace(os.Getenv("CALSYNC_SERVER_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CALSYNC_SERVER_PORT")
		} else {
			cfg.Client.ServerPort = port
		}
	}

	if dir := strings.TrimSpace(os.Getenv("CALSYNC_CLIENT_DATA_DIR")); dir != "" {
		cfg.Client.DataDir = dir
	}

	if name := strings.TrimSpace(os.Getenv("CALSYNC_DISPLAY_NAME")); name != "" {
		cfg.Client.DisplayName = name
	}

	if level := strings.TrimSpace(os.Getenv("CALSYNC_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ListenAddr returns the server's listen address.
func (c ServerConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// SnapshotPath returns the server's shared-event snapshot file location.
func (c ServerConfig) SnapshotPath() string {
	return filepath.Join(c.DataDir, "shared_todos.txt")
}

// ServerAddr returns the host:port the client dials.
func (c ClientConfig) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// CachePath returns the per-user shared cache file location.
func (c ClientConfig) CachePath(displayName string) string {
	return filepath.Join(c.DataDir, displayName, "shared_cache.txt")
}
