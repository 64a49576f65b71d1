package commands

import (
	"context"
	"database/sql"
	"fmt"
	"mtgstats-backend/internal/cardname"
	"mtgstats-backend/internal/components/chrono"
	"mtgstats-backend/internal/components/telemetry"
	"mtgstats-backend/internal/db"
	"mtgstats-backend/internal/harvest"
	"mtgstats-backend/internal/jobs"
	"mtgstats-backend/internal/scrapers/mkm"
	"mtgstats-backend/internal/scrapers/mtgapi"
	"mtgstats-backend/internal/scrapers/mtgtop8"
)

// app is every long lived component of a harvest process.
type app struct {
	cfg          Config
	tel          telemetry.API
	time         chrono.StandardImpl
	database     *sql.DB
	store        db.Store
	broker       jobs.Broker
	pool         *jobs.Pool
	orchestrator *harvest.Orchestrator
}

func newApp(ctx context.Context, cfg Config) (*app, error) {
	tel := telemetry.SlogAPI{}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	database, err := cfg.Database.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store := db.NewStore(database, clock.Location())

	overrides, err := cardname.DefaultOverrides()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("read card name overrides: %w", err)
	}
	if cfg.OverridesFile != "" {
		overrides, err = cardname.LoadOverrides(cfg.OverridesFile)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("read card name overrides: %w", err)
		}
	}

	tournaments, err := mtgtop8.NewClient(cfg.Mtgtop8, tel)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("create mtgtop8 client: %w", err)
	}

	broker, err := cfg.Broker.NewBroker(ctx, tel)
	if err != nil {
		database.Close()
		return nil, err
	}

	registry := jobs.NewRegistry()
	pool := jobs.NewPool(broker, registry, tel, jobs.WithWorkers(cfg.Workers))
	orchestrator := harvest.NewOrchestrator(harvest.Dependencies{
		Dispatcher:  pool,
		Tournaments: tournaments,
		Prices:      mkm.NewClient(cfg.Mkm, tel),
		Cards:       mtgapi.NewClient(cfg.MtgApi, clock.Location(), tel),
		Store:       store,
		Resolver:    cardname.NewResolver(store, overrides),
		Time:        clock,
	}, tel)
	orchestrator.Register(registry, cfg.Harvest)

	return &app{
		cfg:          cfg,
		tel:          tel,
		time:         clock,
		database:     database,
		store:        store,
		broker:       broker,
		pool:         pool,
		orchestrator: orchestrator,
	}, nil
}

// local reports whether the jobs stay in this process.
func (a *app) local() bool {
	return a.cfg.Broker.Redis.Addr == ""
}

func (a *app) Close() error {
	brokerErr := a.broker.Close()
	dbErr := a.database.Close()
	if brokerErr != nil {
		return brokerErr
	}
	return dbErr
}
