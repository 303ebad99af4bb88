//go:build wireinject
// +build wireinject

package app

import (
	"github.com/amaumene/releasarr/internal/api"
	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/controllers"
	"github.com/amaumene/releasarr/internal/jobs"
	"github.com/amaumene/releasarr/internal/metrics"
	"github.com/amaumene/releasarr/internal/scheduler"
	"github.com/amaumene/releasarr/internal/services/extractor"
	"github.com/google/wire"
)

var extractorSet = wire.NewSet(
	extractor.NewClient,
	wire.Bind(new(controllers.ReleaseSource), new(*extractor.Client)),
	wire.Bind(new(controllers.ShowDetailSource), new(*extractor.Client)),
	wire.Bind(new(jobs.DetailSource), new(*extractor.Client)),
)

var jobsSet = wire.NewSet(
	jobs.NewEnricher,
	wire.Bind(new(jobs.Runner), new(*jobs.Enricher)),
	ProvideQueue,
	wire.Bind(new(controllers.Scheduler), new(*jobs.Queue)),
)

var controllersSet = wire.NewSet(
	controllers.NewReconciler,
	controllers.NewImportController,
	controllers.NewCleanupController,
	controllers.NewShowSyncController,
	controllers.NewEnrichmentController,
)

// InitializeApp wires the whole process from cfg
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideDatabase,
		ProvideTracerProvider,
		ProvideTracer,
		metrics.New,
		extractorSet,
		jobsSet,
		controllersSet,
		scheduler.NewScheduler,
		api.NewServer,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
