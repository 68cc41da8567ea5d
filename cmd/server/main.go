package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkale/splitledger/internal/ledger"
	"github.com/mkale/splitledger/internal/storage/sqlite"
	"github.com/mkale/splitledger/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/ledger.db")
	addr := getEnv("ADDR", ":8080")
	checkInterval, err := time.ParseDuration(getEnv("CONSERVATION_CHECK_INTERVAL", "1m"))
	if err != nil {
		slog.Error("Invalid CONSERVATION_CHECK_INTERVAL", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	engine := ledger.NewEngine(store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runConservationVerifier(ctx, store, engine, checkInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// runConservationVerifier periodically re-checks every group's ledger
// invariants. Violations are already logged and counted by the engine;
// this loop just keeps the check running for mutations that happened
// outside this process (e.g. manual database edits).
func runConservationVerifier(ctx context.Context, store *sqlite.SQLiteStore, engine *ledger.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			groups, err := store.ListGroups(ctx)
			if err != nil {
				slog.Error("Conservation verifier failed to list groups", "error", err)
				continue
			}
			for _, groupID := range groups {
				if err := engine.VerifyConservation(ctx, groupID); err != nil {
					slog.Error("Conservation verifier found violation", "group_id", groupID, "error", err)
				}
			}
		}
	}
}
