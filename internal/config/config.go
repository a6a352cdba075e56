// Package config resolves runtime configuration for the CLI and server
// surfaces. The core packages only ever see the resolved values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved configuration values.
type Config struct {
	DBPath           string
	Port             string
	WebhookSecret    string
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	AuditLogPath     string
	ReplayCapacity   int
}

// Load reads configuration from defaults, an optional config file
// (websocket-manager.{yaml,toml,json} in ~/.blackroad or the working
// directory), and WSMAN_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("db.path", DefaultDBPath())
	v.SetDefault("server.port", "8080")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("heartbeat.timeout", 30*time.Second)
	v.SetDefault("heartbeat.sweep_interval", 60*time.Second)
	v.SetDefault("audit.path", "")
	v.SetDefault("replay.capacity", 256)

	v.SetEnvPrefix("WSMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("websocket-manager")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".blackroad"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{
		DBPath:           v.GetString("db.path"),
		Port:             v.GetString("server.port"),
		WebhookSecret:    v.GetString("webhook.secret"),
		HeartbeatTimeout: v.GetDuration("heartbeat.timeout"),
		SweepInterval:    v.GetDuration("heartbeat.sweep_interval"),
		AuditLogPath:     v.GetString("audit.path"),
		ReplayCapacity:   v.GetInt("replay.capacity"),
	}, nil
}

// DefaultDBPath returns the default store location under the user's home
// directory.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "websocket-manager.db"
	}
	return filepath.Join(home, ".blackroad", "websocket-manager.db")
}
