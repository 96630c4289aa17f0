package fx

import (
	"grappling-rank/internal/config"
	"grappling-rank/internal/database"
	"grappling-rank/internal/logger"
	"grappling-rank/internal/repository"
	"grappling-rank/internal/scheduler"
	"grappling-rank/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewAthleteRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewSuspensionRepository),
	fx.Provide(repository.NewBoardRepository),
	fx.Provide(repository.NewLiveRatingRepository),
	fx.Provide(repository.NewRegistrationRepository),
	// svc
	fx.Provide(service.NewBoardService),
	fx.Provide(service.NewRecomputeService),
	fx.Provide(service.NewBracketService),
	// background jobs
	fx.Provide(scheduler.New),
)
