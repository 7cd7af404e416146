// Package app is the composition root shared by the server and dbtool.
// It wires concrete adapters (PostgreSQL, Redis, ORS, Telegram, Kafka)
// behind ports and hands back a ready BatchRunner.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"route-dispatch-service/internal/adapters/cache"
	"route-dispatch-service/internal/adapters/coordination"
	"route-dispatch-service/internal/adapters/distance"
	"route-dispatch-service/internal/adapters/notify"
	"route-dispatch-service/internal/adapters/repositories"
	"route-dispatch-service/internal/config"
	"route-dispatch-service/internal/platform/obs"
	"route-dispatch-service/internal/ports"
	"route-dispatch-service/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type smsWriter interface {
	notify.MessageWriter
	Close() error
}

var newSMSWriter = func(brokers []string, topic string) smsWriter {
	return notify.NewKafkaWriter(brokers, topic)
}

type App struct {
	Runner   *services.BatchRunner
	Store    *repositories.PostgresAssignmentStore
	Registry *prometheus.Registry

	closers []func() error
}

// Build assembles the dispatch pipeline. Optional integrations are skipped
// with a warning when their settings are empty: no Redis means no lock and no
// rate limiting, no ORS key means straight-line estimates only, and a missing
// Telegram token or Kafka broker list turns those sends into recipient errors.
func Build(ctx context.Context, cfg *config.Config, db *sql.DB, log zerolog.Logger) (_ *App, err error) {
	a := &App{Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("release partially built app")
			}
		}
	}()

	metrics, err := obs.NewMetrics(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	var (
		limiter ports.RateLimiter
		locker  ports.KeyLocker
	)
	if cfg.RedisAddr != "" {
		rdb, err := coordination.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		limiter, locker = coordination.NewRateLimiter(rdb), coordination.NewLocker(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set: running without tenant lock or rate limits")
	}

	var provider ports.DistanceProvider
	if cfg.ORSAPIKey != "" {
		ors, err := distance.NewORSDistanceProvider(cfg.ORSAPIKey, cfg.ORSBaseURL, cache.NewSQLDistanceCache(db))
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		provider = ors
	} else {
		log.Warn().Msg("ORS_API_KEY not set: using straight-line distance estimates")
	}

	var teamNotifier ports.TeamNotifier
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramBaseURL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		teamNotifier = tg
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set: team lead messages will fail")
	}

	var smsSender ports.SMSSender
	if len(cfg.KafkaBrokers) > 0 {
		w := newSMSWriter(cfg.KafkaBrokers, cfg.SMSTopic)
		a.closers = append(a.closers, w.Close)
		smsSender = notify.NewKafkaSMSSender(w)
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set: customer SMS will fail")
	}

	gate, err := services.NewTenantScheduleGate(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	estimator := services.NewDistanceEstimator(provider, cfg.DistanceTimeout).
		WithMetrics(metrics)
	optimizer := services.NewRouteOptimizer(
		repositories.NewPostgresJobRepository(db),
		repositories.NewPostgresTeamRepository(db),
		estimator,
		gate,
	).WithSettings(cfg.LookupConcurrency, cfg.MaxTwoOptScans).WithMetrics(metrics)

	a.Store = repositories.NewPostgresAssignmentStore(db)
	persister := services.NewAssignmentPersister(a.Store)

	coordinator := services.NewDispatchCoordinator(teamNotifier, smsSender).
		WithSettings(cfg.SendTimeout, cfg.DispatchConcurrency).
		WithMetrics(metrics)

	a.Runner = services.NewBatchRunner(
		repositories.NewPostgresTenantRepository(db),
		gate,
		optimizer,
		persister,
		coordinator,
	).WithConcurrency(cfg.TenantConcurrency).WithMetrics(metrics)

	if limiter != nil {
		estimator.WithRateLimit(limiter, cfg.DistanceRatePerMinute)
		coordinator.WithRateLimit(limiter, cfg.TelegramRatePerMinute, cfg.SMSRatePerMinute)
	}
	if locker != nil {
		a.Runner.WithLocker(locker, cfg.LockTTL)
	}

	return a, nil
}

// Close releases the Redis client and Kafka writer. The database handle
// belongs to the caller.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
