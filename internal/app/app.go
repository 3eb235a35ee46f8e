package app

import (
	"context"

	"github.com/bamzi/jobrunner"
	"go.uber.org/fx"

	"github.com/mimiro-io/entity-variable-datalayer/internal/conf"
	"github.com/mimiro-io/entity-variable-datalayer/internal/service"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/mimiro-io/entity-variable-datalayer/internal/web"
)

func wire() *fx.App {
	app := fx.New(
		fx.Provide(
			conf.NewEnv,
			conf.NewStatsd,
			conf.NewLogger,
			conf.NewConfigurationManager,
			store.NewDatabase,
			store.NewEntityStore,
			store.NewInstanceStore,
			store.NewVariableStore,
			store.NewPartitionProvisioner,
			service.NewEntityService,
			service.NewInstanceService,
			service.NewVariableService,
			service.NewCatalogSync,
			service.NewPartitionJob,
			web.NewWebServer,
			web.NewMiddleware,
		),
		fx.Invoke(
			startScheduler,
			service.RegisterCatalogSync,
			service.SchedulePartitionJob,
			web.Register,
			web.NewEntityHandler,
			web.NewVariableHandler,
		),
	)
	return app
}

// startScheduler must run before anything schedules jobs.
func startScheduler(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			jobrunner.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			jobrunner.Stop()
			return nil
		},
	})
}

func Run() {
	wire().Run()
}

func Start(ctx context.Context) (*fx.App, error) {
	app := wire()
	err := app.Start(ctx)
	return app, err
}
