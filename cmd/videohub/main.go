// Command videohub runs the VideoHub API server and its maintenance
// commands.
//
//	videohub serve                     start the HTTP server
//	videohub migrate up|down           apply or roll back the schema
//	videohub create-editor --email ... provision a password user
//
// Configuration comes from the environment; see internal/config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/videohub/internal/config"
	"github.com/sakif/videohub/internal/repository/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "videohub",
	Short:         "Multi-account video review and publishing service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "videohub: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger at the configured level. Unknown
// levels fall back to info.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// openDB creates the database directory if needed, opens the database and
// applies pending migrations.
func openDB(cfg config.Config) (*sqlite.DB, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
