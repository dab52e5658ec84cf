package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	SSH       SSHConfig
	Debug     DebugConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// SSHConfig holds the SSH listener and shell-spawning configuration.
type SSHConfig struct {
	Addr        string `envconfig:"SSH_ADDR" default:"0.0.0.0:2022"`
	HostKeyPath string `envconfig:"HOST_KEY" default:""`

	// Shell is the command template spawned for "shell" requests,
	// space-separated. Tokens equal to $USER are substituted with the
	// session's resolved username at startup.
	Shell string `envconfig:"SHELL_CMD" default:"/bin/sh -i"`

	// NoClientAuth accepts any client without credentials. Only for
	// trusted deployments behind another auth layer.
	NoClientAuth bool   `envconfig:"NO_CLIENT_AUTH" default:"false"`
	AuthUser     string `envconfig:"AUTH_USER" default:""`
	AuthPassword string `envconfig:"AUTH_PASSWORD" default:""`

	// UsePty allocates a real pseudo-terminal for sessions that sent a
	// pty-req; when false those sessions get filtered pipes instead.
	UsePty bool `envconfig:"USE_PTY" default:"true"`
}

// ShellTokens returns the shell command template split into tokens.
func (c SSHConfig) ShellTokens() []string {
	return strings.Fields(c.Shell)
}

// DebugConfig holds the optional HTTP debug listener configuration.
// An empty address disables the listener.
type DebugConfig struct {
	Addr string `envconfig:"DEBUG_ADDR" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds connection accept rate limiting configuration.
type RateLimitConfig struct {
	PerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst     int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled   bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		SSH: SSHConfig{
			Addr:   "0.0.0.0:2022",
			Shell:  "/bin/sh -i",
			UsePty: true,
		},
		Debug: DebugConfig{
			Addr: "",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 20,
			Burst:     40,
			Enabled:   true,
		},
	}
}
