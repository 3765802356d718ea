package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/config"
	"salon-ledger/internal/handlers"
	"salon-ledger/internal/inventory"
	"salon-ledger/internal/ledger"
	"salon-ledger/internal/report"
	"salon-ledger/internal/sales"
	"salon-ledger/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: config.yaml in working directory)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(stdout, cfg.Log.Level)
	slog.SetDefault(log)

	db, err := storage.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ttl := time.Duration(cfg.Auth.SessionHours) * time.Hour
	warnBand := time.Duration(cfg.Auth.WarningMinutes) * time.Minute

	resolver := auth.NewResolver(db, cfg.Auth.OwnerKey, cfg.Auth.OwnerName)
	sessions := auth.NewSessionManager(db, ttl, warnBand, cfg.Auth.OwnerName)

	h := handlers.New(
		log,
		db,
		resolver,
		sessions,
		ledger.NewService(db, cfg.Auth.OwnerKey),
		inventory.NewService(db),
		sales.NewService(db),
		report.NewExporter(),
		ttl,
		cfg.Auth.SecureCookie,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired sessions are rejected on use either way; the sweeper just
	// keeps the table from growing.
	watcher := auth.NewWatcher(db, time.Minute, log)
	go watcher.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:      h.Router(cfg.Metrics),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "db", cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
