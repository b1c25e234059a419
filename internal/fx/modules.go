package fx

import (
	"boundary-tracker/internal/api"
	"boundary-tracker/internal/config"
	"boundary-tracker/internal/database"
	"boundary-tracker/internal/logger"
	"boundary-tracker/internal/repository"
	"boundary-tracker/internal/server"
	"boundary-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewDeliveryRepository),
	fx.Provide(repository.NewAggregateRepository),
	fx.Provide(repository.NewIngestRunRepository),
	// feed client
	fx.Provide(api.NewFeedClient),
	// svc
	fx.Provide(service.NewIngestService),
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.NewBoundaryServer),
)
