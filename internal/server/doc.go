// Package server hosts SSH sessions and bridges them to shell adapters.
//
// This package orchestrates the transport side of shellbridge:
//   - TCP accept loop with rate limiting
//   - SSH handshake and authentication (password or no-auth)
//   - Session channel handling (env, pty-req, shell, exec, window-change)
//   - Channel-to-adapter stream piping and exit-status delivery
//   - A registry of live sessions for the debug API and metrics
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Load or generate the host key
//  3. Accept connections and spawn one shell adapter per session channel
//  4. On process exit, send exit-status and destroy the adapter
//  5. Graceful shutdown destroys any remaining adapters
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger, metrics)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
