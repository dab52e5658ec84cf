package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/openmux/shellbridge/internal/api"
	"github.com/openmux/shellbridge/internal/config"
	"github.com/openmux/shellbridge/internal/logging"
	"github.com/openmux/shellbridge/internal/monitoring"
	"github.com/openmux/shellbridge/internal/server"
)

func main() {
	// Flags override environment configuration for development.
	addr := flag.String("addr", "", "SSH listen address (overrides SSH_ADDR)")
	debugAddr := flag.String("debug", "", "debug HTTP listen address (overrides DEBUG_ADDR)")
	shellCmd := flag.String("shell", "", "shell command template (overrides SHELL_CMD)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *addr != "" {
		cfg.SSH.Addr = *addr
	}
	if *debugAddr != "" {
		cfg.Debug.Addr = *debugAddr
	}
	if *shellCmd != "" {
		cfg.SSH.Shell = *shellCmd
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	metrics := monitoring.New()

	srv, err := server.New(cfg, logger, metrics)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	if cfg.Debug.Addr != "" {
		debugAPI := api.New(logger, srv.Registry(), metrics, cfg.SSH.ShellTokens())
		listener, err := net.Listen("tcp", cfg.Debug.Addr)
		if err != nil {
			logger.Fatal("failed to bind debug listener", zap.Error(err))
		}
		logger.Info("debug API listening", zap.String("addr", listener.Addr().String()))
		go func() {
			if err := debugAPI.Serve(listener); err != nil {
				logger.Warn("debug API stopped", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Warn("error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}
