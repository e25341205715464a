package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kshetline/svc-api/internal/db"
	"github.com/kshetline/svc-api/internal/gazetteer"
	"github.com/kshetline/svc-api/internal/search"
	"github.com/kshetline/svc-api/internal/store"
	"github.com/kshetline/svc-api/internal/zones"
	"github.com/kshetline/svc-api/pkg/geonames"
	"github.com/kshetline/svc-api/pkg/getty"
)

// env bundles the wired pipeline for a command run.
type env struct {
	Store    *store.Service
	Zones    *zones.Resolver
	Searcher *search.Searcher

	closeFns []func()
}

func (e *env) Close() {
	for i := len(e.closeFns) - 1; i >= 0; i-- {
		e.closeFns[i]()
	}
}

// initEnv wires store, zone resolver, remote adapters, and the searcher
// from the loaded configuration.
func initEnv(ctx context.Context) (*env, error) {
	if err := gazetteer.Init(); err != nil {
		return nil, eris.Wrap(err, "gazetteer init")
	}
	g := gazetteer.Instance()

	e := &env{}

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.Store = store.NewPostgres(pool, g)
		e.closeFns = append(e.closeFns, pool.Close)
	case "sqlite":
		st, err := store.OpenSQLite(cfg.Store.SQLitePath, g)
		if err != nil {
			return nil, err
		}
		e.Store = st
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	zr, err := zones.New(e.Store)
	if err != nil {
		return nil, err
	}
	e.Zones = zr

	gn := geonames.NewClient(
		geonames.WithBaseURL(cfg.Geonames.BaseURL),
		geonames.WithUsername(cfg.Geonames.Username),
	)
	gt := getty.NewClient(getty.WithBaseURL(cfg.Getty.BaseURL))

	e.Searcher = search.New(e.Store, e.Zones, gn, gt, search.Config{
		GeonamesTimeout: time.Duration(cfg.Geonames.TimeoutSecs) * time.Second,
		GettyTimeout:    time.Duration(cfg.Getty.TimeoutSecs) * time.Second,
	})

	zap.L().Debug("environment ready", zap.String("driver", cfg.Store.Driver))
	return e, nil
}
