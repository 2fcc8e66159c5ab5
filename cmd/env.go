package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"

	"github.com/namrata935/polycentric-el/internal/config"
	"github.com/namrata935/polycentric-el/internal/core"
	"github.com/namrata935/polycentric-el/internal/domain/repository"
	"github.com/namrata935/polycentric-el/internal/metrics"
)

// appEnv holds the wired services shared by the subcommands.
type appEnv struct {
	Store    *repository.PointStore
	Overpass *repository.OverpassRepository
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Zones    *core.ZoneService
	Ingest   *core.IngestService
}

func initEnv(ctx context.Context, c *config.Config) (*appEnv, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := repository.NewPointStore(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	overpassRepo, err := repository.NewOverpassRepository(repository.OverpassSettings{
		Endpoints:          c.Overpass.Endpoints,
		Timeout:            c.Overpass.Timeout(),
		MaxParallel:        c.Overpass.MaxParallel,
		RequestsPerMinute:  c.Overpass.RequestsPerMinute,
		RetryAttempts:      c.Overpass.RetryAttempts,
		RetryBackoff:       c.Overpass.RetryBackoff(),
		BusinessArea:       c.Overpass.BusinessArea,
		BusinessAdminLevel: c.Overpass.BusinessAdminLevel,
		TransitArea:        c.Overpass.TransitArea,
		TransitAdminLevel:  c.Overpass.TransitAdminLevel,
		TransitLimit:       c.Overpass.TransitLimit,
	}, m)
	if err != nil {
		store.Close()
		return nil, err
	}

	strategy, err := core.ParseStrategy(c.Scoring.Strategy)
	if err != nil {
		store.Close()
		return nil, eris.Wrap(err, "init scoring")
	}
	scorer := core.NewZoneScorer(core.ScoringOptions{
		Strategy:     strategy,
		HighQuantile: c.Scoring.HighQuantile,
		MidQuantile:  c.Scoring.MidQuantile,
	})

	return &appEnv{
		Store:    store,
		Overpass: overpassRepo,
		Registry: reg,
		Metrics:  m,
		Zones:    core.NewZoneService(store, scorer, m),
		Ingest:   core.NewIngestService(overpassRepo, store, m),
	}, nil
}

func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}
