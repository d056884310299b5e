// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"wasa_admin_backend/internal/admin"
	"wasa_admin_backend/internal/agent"
	"wasa_admin_backend/internal/app"
	"wasa_admin_backend/internal/approval"
	"wasa_admin_backend/internal/audit"
	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/dashboard"
	"wasa_admin_backend/internal/jobs"
	"wasa_admin_backend/internal/location"
	"wasa_admin_backend/internal/meter"
	"wasa_admin_backend/internal/middleware"
	"wasa_admin_backend/internal/scoring"
	"wasa_admin_backend/internal/tariff"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	provideLogger,
	provideDB,
	provideRedis,
	provideElasticsearch,
	provideStore,
)

var domainSet = wire.NewSet(
	audit.NewGORMRepository,
	audit.NewService,
	wire.Bind(new(audit.Recorder), new(audit.Service)),

	admin.NewGORMRepository,
	admin.NewService,
	wire.Bind(new(auth.AccountProvider), new(admin.Service)),
	wire.Bind(new(middleware.AccountLookup), new(admin.Service)),

	location.NewGORMRepository,
	provideHierarchyCache,
	location.NewService,
	wire.Bind(new(agent.ChainValidator), new(location.Service)),
	wire.Bind(new(customer.LocationResolver), new(location.Service)),
	wire.Bind(new(scoring.AreaFinder), new(location.Service)),

	approval.NewRegistry,
	approval.NewGORMRepository,
	approval.NewService,
	wire.Bind(new(approval.Submitter), new(approval.Service)),

	tariff.NewGORMRepository,
	tariff.NewService,
	wire.Bind(new(customer.TariffLookup), new(tariff.Service)),

	scoring.NewGORMRepository,
	scoring.NewService,

	agent.NewGORMRepository,
	agent.NewService,

	customer.NewGORMRepository,
	customer.NewIndexer,
	customer.NewService,
	wire.Bind(new(meter.CustomerLookup), new(customer.Service)),

	meter.NewGORMRepository,
	meter.NewService,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		domainSet,

		auth.NewJWTService,
		auth.NewBlocklistService,
		auth.NewService,
		auth.NewHandler,
		admin.NewHandler,
		location.NewHandler,
		approval.NewHandler,
		audit.NewHandler,
		tariff.NewHandler,
		scoring.NewHandler,
		agent.NewHandler,
		customer.NewHandler,
		meter.NewHandler,
		provideDashboardSources,
		dashboard.NewService,
		dashboard.NewHandler,
		wire.Struct(new(app.Handlers), "*"),

		wire.Bind(new(jobs.ApprovalExpirer), new(approval.Service)),
		wire.Bind(new(jobs.AuditPurger), new(audit.Service)),
		jobs.NewApprovalExpiryJob,
		jobs.NewAuditRetentionJob,
		wire.Struct(new(app.Jobs), "*"),

		app.NewServer,
	)
	return nil, nil, nil
}

// initializeCLI builds the services used by the maintenance commands.
func initializeCLI(cfg *config.Config) (*cliDeps, func(), error) {
	wire.Build(
		platformSet,
		domainSet,
		wire.Struct(new(cliDeps), "*"),
	)
	return nil, nil, nil
}
