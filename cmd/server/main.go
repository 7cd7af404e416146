package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"route-dispatch-service/internal/adapters/repositories"
	"route-dispatch-service/internal/api"
	"route-dispatch-service/internal/app"
	"route-dispatch-service/internal/config"
	"route-dispatch-service/internal/platform/db"
	"route-dispatch-service/internal/platform/logger"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// main wires the dispatch pipeline and serves the cron trigger.
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("server", "", "info")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logger.New("server", cfg.AppEnv, cfg.LogLevel)
	if envErr != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.WithContext(ctx)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer conn.Close()

	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("schema")
	}

	a, err := app.Build(ctx, cfg, conn, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring")
	}
	defer a.Close()

	router := api.NewRouter(api.Deps{
		Runner:  a.Runner,
		Store:   a.Store,
		Secret:  cfg.CronSecret,
		Logger:  log,
		Metrics: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
	})

	srv := newHTTPServer(cfg.Port, router)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("serve")
	}
}

// newHTTPServer applies the listener timeouts. A cron tick fans out distance
// lookups and notifications for every due tenant, so writes get a long budget.
func newHTTPServer(port string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      300 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
