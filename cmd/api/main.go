package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoangtv090103/flex-track/internal/api"
	"github.com/hoangtv090103/flex-track/internal/auth"
	"github.com/hoangtv090103/flex-track/internal/config"
	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/persistence"
	"github.com/hoangtv090103/flex-track/internal/persistence/postgres"
	"github.com/hoangtv090103/flex-track/internal/persistence/sqlite"
	httptransport "github.com/hoangtv090103/flex-track/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := func(ctx context.Context) (domain.WorkoutStore, error) {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return postgres.NewRepository(pool), nil
	}
	fallback := func(context.Context) (domain.WorkoutStore, error) {
		return sqlite.Open(cfg.SQLitePath)
	}

	selector := persistence.NewSelector(remote, fallback)

	probeCtx, probeCancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	store, err := selector.Store(probeCtx)
	probeCancel()
	if err != nil {
		log.Fatalf("failed to open a workout store: %v", err)
	}
	log.Printf("using %s workout store", selector.ActiveRepositoryType())

	service := domain.NewService(store, auth.ClaimsProvider{})

	handler := api.NewHandler(service, selector)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for the web front end
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("flex-track api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
