// File: cmd/server/providers.go
package main

import (
	"context"
	"log"

	"wasa_admin_backend/internal/agent"
	"wasa_admin_backend/internal/admin"
	"wasa_admin_backend/internal/app"
	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/dashboard"
	"wasa_admin_backend/internal/filestorage"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/meter"
	"wasa_admin_backend/internal/platform/cache"
	"wasa_admin_backend/internal/platform/database"
	platformElasticsearch "wasa_admin_backend/internal/platform/elasticsearch"
	"wasa_admin_backend/internal/platform/logger"
	"wasa_admin_backend/internal/scoring"
	"wasa_admin_backend/internal/tariff"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDB opens the database and migrates it when DB_AUTO_MIGRATE is set.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db, logger, app.Models()...); err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, err
		}
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

func provideRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	rdb, err := cache.NewRedisClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { cache.CloseRedis(rdb, logger) }, nil
}

// provideElasticsearch never fails startup; customer search falls back to
// the database when the cluster is unreachable.
func provideElasticsearch(cfg *config.Config, logger *zap.Logger) *platformElasticsearch.ESClientWrapper {
	client, err := platformElasticsearch.NewClient(cfg, logger)
	if err != nil {
		logger.Warn("Elasticsearch unavailable; customer search uses the database", zap.Error(err))
		return nil
	}
	return client
}

func provideStore(cfg *config.Config, logger *zap.Logger) (filestorage.Store, error) {
	return filestorage.NewStore(context.Background(), cfg, logger.Named("filestorage"))
}

func provideHierarchyCache(rdb *redis.Client, cfg *config.Config) location.HierarchyCache {
	return location.NewHierarchyCache(rdb, cfg.LocationCacheTTL)
}

func provideDashboardSources(
	customers customer.Service,
	meters meter.Service,
	agents agent.Service,
	rulesets scoring.Service,
	approvals approval.Service,
	tariffs tariff.Service,
	locations location.Service,
) dashboard.Sources {
	return dashboard.Sources{
		Customers: customers,
		Meters:    meters,
		Agents:    agents,
		Rulesets:  rulesets,
		Approvals: approvals,
		Tariffs:   tariffs,
		Locations: locations,
	}
}

// cliDeps are the services the maintenance commands need.
type cliDeps struct {
	Logger    *zap.Logger
	Admins    admin.Service
	Customers customer.Service
}
