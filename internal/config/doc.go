// Package config provides 12-factor configuration management for the
// shellbridge daemon.
//
// Configuration is loaded from environment variables with sensible
// defaults. CLI flags can override environment variables for development
// flexibility.
//
// Configuration Sections:
//   - SSH: listener address, host key, shell command, auth policy
//   - Debug: optional HTTP debug/observability listener
//   - Logging: log level and output format
//   - RateLimit: connection accept rate limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s\n", cfg.SSH.Addr)
//
// Environment Variables:
//   - SSH_ADDR, HOST_KEY, SHELL_CMD, NO_CLIENT_AUTH, AUTH_USER,
//     AUTH_PASSWORD, USE_PTY
//   - DEBUG_ADDR
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
