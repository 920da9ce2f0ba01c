package main

import (
	"context"
	"fmt"

	"persondir/internal/directory/service"
	"persondir/internal/directory/sink/file"
	pgsink "persondir/internal/directory/sink/postgres"
	redissink "persondir/internal/directory/sink/redis"
	"persondir/internal/directory/sink/sqlite"
	"persondir/internal/platform/config"
	"persondir/internal/platform/postgres"
	"persondir/internal/platform/redis"
)

func noopClose() error { return nil }

// openSink builds the persistence sink for the configured driver. The
// returned close func releases any connection it opened.
func openSink(ctx context.Context, cfg *config.Config) (service.Sink, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile:
		return file.New(cfg.Storage.DataFile), noopClose, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.DriverRedis:
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redissink.New(client, redissink.WithKey(cfg.Storage.RedisKey)), client.Close, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		s, err := pgsink.New(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
