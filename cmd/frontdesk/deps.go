package main

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/config"
	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/store/postgres"
	redisstore "github.com/gosuda/frontdesk/internal/store/redis"
	"github.com/gosuda/frontdesk/internal/store/sqlite"
)

// requestStore is satisfied by both postgres.Store and sqlite.Store.
type requestStore interface {
	HelpRequests() domain.HelpRequestRepository
	Knowledge() domain.KnowledgeRepository
	Rooms() domain.RoomRepository
	Bookings() domain.BookingRepository
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (requestStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}
		store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", config.DriverPostgres).Str("host", cfg.Database.Host).Msg("request store ready")
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.New(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", config.DriverSQLite).Str("path", cfg.Database.SQLitePath).Msg("request store ready")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// openTransport returns Redis pub/sub when configured, otherwise an
// in-process broker. The returned func releases the transport.
func openTransport(ctx context.Context, cfg *config.Config) (changefeed.Transport, func(), error) {
	if !cfg.Redis.Enabled() {
		log.Info().Msg("change stream: in-process broker")
		return changefeed.NewBroker(), func() {}, nil
	}

	pubsub, err := redisstore.New(ctx, cfg.Redis.URL, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("change stream: redis")
	return pubsub, func() { _ = pubsub.Close() }, nil
}
