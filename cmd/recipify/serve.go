package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/recipify/internal/detection"
	"github.com/zombor/recipify/internal/receipt"
)

func newServeCommand(cfg *rootConfig, parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbDriver     = fs.StringLong("db-driver", "bolt", "Database driver: 'bolt' or 'postgres'")
		dbPath       = fs.StringLong("db", "recipify.db", "BoltDB file path")
		postgresDSN  = fs.StringLong("postgres-dsn", "", "PostgreSQL connection string")
		storagePath  = fs.StringLong("storage", "./receipts", "Storage directory path")
		modelPath    = fs.StringLong("detector-model", "", "ONNX object-detection model path (optional)")
		modelLabels  = fs.StringLong("detector-labels", "receipt,logo", "Comma separated detector class labels")
		onnxLib      = fs.StringLong("onnx-lib", "", "onnxruntime shared library path")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		authPassHash = fs.StringLong("auth-pass-hash", "", "Basic auth bcrypt password hash (optional)")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     "recipify serve [FLAGS]",
		ShortHelp: "Run the receipt HTTP API",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			// Initialize database
			slog.Info("Initializing database...", "driver", *dbDriver)
			db, err := openDB(*dbDriver, *dbPath, *postgresDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			scanner, err := cfg.newScanner()
			if err != nil {
				return fmt.Errorf("initializing scanner: %w", err)
			}
			defer scanner.Close()

			// Initialize storage
			slog.Info("Initializing storage...")
			store, err := receipt.NewLocalStorage(*storagePath)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}

			receiptService := receipt.NewService(db, scanner, store)
			receiptService.SetParser(cfg.newParser())

			if *modelPath != "" {
				slog.Info("Initializing detector...", "model", *modelPath)
				detector, err := detection.NewONNXDetector(detection.Config{
					ModelPath:   *modelPath,
					LibraryPath: *onnxLib,
					Labels:      strings.Split(*modelLabels, ","),
				})
				if err != nil {
					return fmt.Errorf("initializing detector: %w", err)
				}
				defer detector.Close()
				receiptService.SetDetector(detector)
			}

			basicAuth := receipt.BasicAuth{
				Username:     *authUser,
				Password:     *authPass,
				PasswordHash: *authPassHash,
			}
			server := receipt.NewServer(receiptService, basicAuth)

			// Start server in goroutine
			addr := fmt.Sprintf(":%d", *port)
			errc := make(chan error, 1)
			go func() {
				errc <- server.Start(addr)
			}()

			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
			if basicAuth.Enabled() {
				slog.Info("Basic auth enabled", "user", *authUser)
			}

			select {
			case err := <-errc:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				slog.Info("Shutting down...")
				return nil
			}
		},
	}
}

// openDB opens the configured receipt database
func openDB(driver, path, dsn string) (receipt.DB, error) {
	switch driver {
	case "bolt":
		return receipt.NewBoltDB(path)
	case "postgres":
		if dsn == "" {
			return nil, errors.New("--postgres-dsn is required for the postgres driver")
		}
		return receipt.NewPostgresDB(dsn)
	default:
		return nil, fmt.Errorf("invalid database driver %q: valid drivers are bolt or postgres", driver)
	}
}
