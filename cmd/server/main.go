/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the document posting engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration, parse command-line flags
  2. Initialize logger and SQLite store
  3. Wire domain services (warehouse, books, invoicing, linkage)
  4. Validate the posting account mapping
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT env)
  -db      SQLite database path (overrides DB_PATH env)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledgerd.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atlas-erp/ledgerd/api"
	"github.com/atlas-erp/ledgerd/books"
	"github.com/atlas-erp/ledgerd/config"
	"github.com/atlas-erp/ledgerd/invoicing"
	"github.com/atlas-erp/ledgerd/linkage"
	"github.com/atlas-erp/ledgerd/logger"
	"github.com/atlas-erp/ledgerd/store/sqlite"
	"github.com/atlas-erp/ledgerd/warehouse"
)

func main() {
	cfg := config.Load()

	// Flags override environment
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Domain services
	resolver := linkage.NewResolver(store, linkage.PostingAccounts{
		Receivable: cfg.AccountReceivable,
		Payable:    cfg.AccountPayable,
		Revenue:    cfg.AccountRevenue,
		Expense:    cfg.AccountExpense,
		VATInput:   cfg.AccountVATInput,
		VATOutput:  cfg.AccountVATOutput,
	})
	handler := api.NewHandler(
		warehouse.NewService(store),
		books.NewService(store),
		invoicing.NewService(store, resolver),
		resolver,
		store,
	)

	// A fresh database has no accounts yet, so an incomplete posting
	// account mapping is a warning, not a startup failure.
	if err := resolver.Validate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("posting account mapping incomplete, invoice posting will report linkage failures")
	}

	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
