// Command server runs the redvault REST API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/redvault/backend/internal/config"
	"github.com/redvault/backend/internal/httpapi"
	"github.com/redvault/backend/internal/logging"
	"github.com/redvault/backend/internal/middleware"
	"github.com/redvault/backend/internal/platform/migrations"
	"github.com/redvault/backend/internal/services/auth"
	"github.com/redvault/backend/internal/services/ledger"
	"github.com/redvault/backend/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := logging.NewDefault("server")
		fallback.Fatal().Err(err).Msg("load configuration")
	}
	log := logging.New(cfg.Log)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("ping database")
	}
	cancel()

	if err := migrations.Apply(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}
	log.Info().Msg("database ready")

	store := postgres.New(db)
	authService := auth.New(store, cfg.JWT.Secret, cfg.Admin, log)
	ledgerService := ledger.New(store, store, log)

	handler := httpapi.New(authService, ledgerService, log)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		Auth:        middleware.NewAuthMiddleware(authService, log),
		CORS:        middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins),
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Log:         log,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server stopped")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
