package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formatting, preset and template API",
		Long: `Serve runs the HTTP API until it receives SIGINT or SIGTERM or a shutdown request.
A restart request reloads the config file, reopens the database and starts again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.json", "path to the JSON config file")
	return cmd
}

// serve hosts the API, restarting it whenever a restart action arrives.
func serve(ctx context.Context, opts *rootOptions, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	actionChan := make(chan string, 1)
	go func() {
		<-ctx.Done()
		opts.logger.Info("Signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := runCycle(opts, configPath, actionChan)
		if err != nil {
			opts.logger.Error("An error occurred during server run, shutting down.", "error", err)
			return err
		}
		if action != actionRestart {
			break
		}
		opts.logger.Info("--- Server Restarting ---")
	}

	opts.logger.Info("fieldfmt has shut down.")
	return nil
}

// runCycle hosts the API once and returns the action that stopped it.
func runCycle(opts *rootOptions, configPath string, actionChan chan string) (string, error) {
	cm, err := NewConfigManager(configPath, opts.logger)
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	config := cm.Get()

	logger := opts.logger
	if !opts.levelSet && config.Server.LogLevel != "" {
		if logger, err = newLogger(opts.logOut, config.Server.LogLevel); err != nil {
			return "", err
		}
	}
	cm.SetLogger(logger)
	logger.Info("Starting server cycle...")

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		logger.Info("Closing database connection.")
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	server, err := NewServer(cm, logger, db, actionChan)
	if err != nil {
		return "", fmt.Errorf("failed to create server object: %w", err)
	}
	defer server.Close()

	apiHttpServer := &http.Server{
		Addr:              config.Server.ApiAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var action string
	select {
	case action = <-actionChan:
	case err = <-serveErr:
		return "", fmt.Errorf("api server failed: %w", err)
	}

	logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = apiHttpServer.Shutdown(ctx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")
	return action, nil
}
