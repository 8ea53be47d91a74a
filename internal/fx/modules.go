package fx

import (
	"boardgame-shelf/internal/api"
	"boardgame-shelf/internal/config"
	"boardgame-shelf/internal/logger"
	"boardgame-shelf/internal/server"
	"boardgame-shelf/internal/service"
	"boardgame-shelf/internal/store"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// api clients
	fx.Provide(api.NewCatalogClient),
	fx.Provide(api.NewEnrichmentClient),
	// state
	fx.Provide(store.NewCollectionStore),
	// svc
	fx.Provide(service.NewCollectionService),
	// server
	fx.Provide(server.NewShelfServer),
)
