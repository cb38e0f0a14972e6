package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/store/postgres/migrations"
)

type Store struct {
	pool      *pgxpool.Pool
	requests  *HelpRequestRepo
	knowledge *KnowledgeRepo
	rooms     *RoomRepo
	bookings  *BookingRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	err = runMigrations(ctx, pool, migrations.FS)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: %w", err)
	}

	return &Store{
		pool:      pool,
		requests:  NewHelpRequestRepo(pool),
		knowledge: NewKnowledgeRepo(pool),
		rooms:     NewRoomRepo(pool),
		bookings:  NewBookingRepo(pool),
	}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) HelpRequests() domain.HelpRequestRepository { return s.requests }
func (s *Store) Knowledge() domain.KnowledgeRepository      { return s.knowledge }
func (s *Store) Rooms() domain.RoomRepository               { return s.rooms }
func (s *Store) Bookings() domain.BookingRepository         { return s.bookings }
