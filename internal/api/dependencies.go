package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/common"
	"pickup-dispatch/dispatch/internal/config"
	"pickup-dispatch/dispatch/internal/db"
	"pickup-dispatch/dispatch/internal/db/repositories"
	"pickup-dispatch/dispatch/internal/geo"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/metrics"
	"pickup-dispatch/dispatch/internal/services"
)

type Repositories struct {
	Settings   *repositories.SettingsRepositoryGORM
	ActionLogs *repositories.ActionLogRepo
}

type Services struct {
	Sessions    common.SessionStore
	Signer      *common.SessionSigner
	Dashboard   *services.DashboardService
	Credentials *services.CredentialService
}

type Dependencies struct {
	Config   *config.Config
	Metrics  *metrics.MetricsRegistry
	ORM      *gorm.DB
	SQL      *sqlx.DB
	Redis    *redis.Client
	Repo     *Repositories
	Services *Services
}

// InitDependencies opens storage and builds every service. Boards run on
// contexts derived from ctx.
func InitDependencies(ctx context.Context, cfg *config.Config, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	orm, err := db.InitORM(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open ORM database: %w", err)
	}
	sqlDB, err := db.InitSQL(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQL database: %w", err)
	}

	repos := &Repositories{
		Settings:   repositories.NewSettingsRepositoryGORM(orm),
		ActionLogs: repositories.NewActionLogRepo(sqlDB),
	}

	deps := &Dependencies{
		Config:  cfg,
		Metrics: metricsReg,
		ORM:     orm,
		SQL:     sqlDB,
		Repo:    repos,
	}

	var sessions common.SessionStore
	if cfg.Redis.Host != "" {
		deps.Redis, err = common.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logging.Error("Redis ping failed, sessions unavailable until it recovers", "error", err.Error())
		} else {
			logging.Info("Connected to Redis", "addr", deps.Redis.Options().Addr)
		}
		sessions = common.NewRedisSessionStore(deps.Redis, cfg.Session.TTL)
	} else {
		logging.Warn("REDIS_HOST not set, sessions are kept in memory")
		sessions = common.NewMemorySessionStore(cfg.Session.TTL)
	}

	factory := services.NewClientFactory(cfg.Dispatch, metricsReg)
	dashboard := services.NewDashboardService(ctx, factory, repos.ActionLogs, metricsReg, services.DashboardOptions{
		WorkspaceTTL: cfg.Session.TTL,
		Board:        aggregator.Options{Concurrency: cfg.Dispatch.FetchConcurrency},
		Depot:        geo.NewDepot(cfg.Map.DepotName, cfg.Map.DepotLocation),
	})

	deps.Services = &Services{
		Sessions:    sessions,
		Signer:      common.NewSessionSigner([]byte(cfg.Session.Secret)),
		Dashboard:   dashboard,
		Credentials: services.NewCredentialService(repos.Settings, factory),
	}

	return deps, nil
}

// HealthChecks lists the connections reported by /healthCheck.
func (d *Dependencies) HealthChecks() map[string]Pinger {
	checks := map[string]Pinger{
		"database": d.Repo.ActionLogs,
		"orm":      pingFunc(d.pingORM),
		"sessions": d.Services.Sessions,
	}
	return checks
}

func (d *Dependencies) pingORM(ctx context.Context) error {
	sqlDB, err := d.ORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close stops every board and releases connections.
func (d *Dependencies) Close() error {
	var errs []error
	if d.Services != nil {
		errs = append(errs, d.Services.Dashboard.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.SQL != nil {
		errs = append(errs, d.SQL.Close())
	}
	if d.ORM != nil {
		if sqlDB, err := d.ORM.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
