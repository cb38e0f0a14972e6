package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/frontdesk/internal/domain"
)

const bookingColumns = `id, room_id, guest_name, checkin_date, checkout_date, notes, status, created_at`

type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

func (r *RoomRepo) List(ctx context.Context) ([]*domain.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, capacity, nightly_rate_cents, updated_at
		 FROM rooms ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.List: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Description, &room.Capacity, &room.NightlyRateCents, &room.UpdatedAt); err != nil {
			return nil, fmt.Errorf("roomRepo.List: scan: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.List: rows: %w", err)
	}

	return rooms, nil
}

func (r *RoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, capacity, nightly_rate_cents, updated_at
		 FROM rooms WHERE id = $1`, id,
	).Scan(&room.ID, &room.Name, &room.Description, &room.Capacity, &room.NightlyRateCents, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("roomRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetByID: %w", err)
	}

	return &room, nil
}

func (r *RoomRepo) Upsert(ctx context.Context, room *domain.Room) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rooms (id, name, description, capacity, nightly_rate_cents, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     capacity = EXCLUDED.capacity,
		     nightly_rate_cents = EXCLUDED.nightly_rate_cents,
		     updated_at = EXCLUDED.updated_at`,
		room.ID, room.Name, room.Description, room.Capacity, room.NightlyRateCents, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.Upsert: %w", err)
	}

	return nil
}

type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text, $8::timestamptz
		 WHERE EXISTS (SELECT 1 FROM rooms WHERE id = $2::text)`,
		b.ID, b.RoomID, b.GuestName, b.CheckinDate, b.CheckoutDate, b.Notes, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("bookingRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bookingRepo.Create: room %q: %w", b.RoomID, domain.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking

	err := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	).Scan(&b.ID, &b.RoomID, &b.GuestName, &b.CheckinDate, &b.CheckoutDate, &b.Notes, &b.Status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bookingRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("bookingRepo.GetByID: %w", err)
	}

	return &b, nil
}

func (r *BookingRepo) List(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE $1::text = '' OR room_id = $1::text
		 ORDER BY created_at DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("bookingRepo.List: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.RoomID, &b.GuestName, &b.CheckinDate, &b.CheckoutDate, &b.Notes, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookingRepo.List: scan: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookingRepo.List: rows: %w", err)
	}

	return bookings, nil
}
