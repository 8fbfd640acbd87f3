package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yumao/kakeibo/internal/api/handlers"
	"github.com/yumao/kakeibo/internal/api/middleware"
	"github.com/yumao/kakeibo/internal/books"
	"github.com/yumao/kakeibo/internal/config"
	"github.com/yumao/kakeibo/internal/idempotency"
	"github.com/yumao/kakeibo/internal/logger"
	"github.com/yumao/kakeibo/internal/reconcile"
	"github.com/yumao/kakeibo/internal/sheets"
)

func main() {
	// Parse command-line flags
	var (
		port = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Connect to the spreadsheet. This is the only failure that halts
	// the process; everything downstream degrades per widget.
	ctx := context.Background()
	store, err := sheets.New(ctx, cfg.SheetsClientConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to spreadsheet")
	}

	engine := reconcile.New(store, cfg.BudgetSchedule(), cfg.Assets.Liquid, log)
	bookkeeper := books.New(store, log)
	idemStore := idempotency.NewStore(10 * time.Minute)
	triggers := cfg.Triggers()

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(engine, log)
	ledgerHandler := handlers.NewLedgerHandler(engine, log)
	transactionsHandler := handlers.NewTransactionsHandler(engine, bookkeeper, log)
	assetsHandler := handlers.NewAssetsHandler(store, log)
	projectionHandler := handlers.NewProjectionHandler(store, log)
	wishlistHandler := handlers.NewWishlistHandler(store, log)
	triggersHandler := handlers.NewTriggersHandler(engine, bookkeeper, triggers, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Get(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ledger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.Month(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/ledger/months", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ledgerHandler.Months(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Path shape: /api/transactions/{row}/cleared
		rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		row, action, ok := strings.Cut(rest, "/")
		if !ok || action != "cleared" || row == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		transactionsHandler.SetCleared(w, r, row)
	})

	mux.HandleFunc("/api/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assetsHandler.Get(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/projection", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			projectionHandler.Get(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			wishlistHandler.List(w, r)
		case http.MethodPost:
			wishlistHandler.Add(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/triggers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			triggersHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/triggers/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/api/triggers/")
		if key == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Trigger key is required")
			return
		}
		triggersHandler.Fire(w, r, key)
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Idempotency(idemStore)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
