package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/domain"
)

const bookingColumns = `id, room_id, guest_name, checkin_date, checkout_date, notes, status, created_at`

type RoomRepo struct {
	db *sql.DB
}

func (r *RoomRepo) List(ctx context.Context) ([]*domain.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, capacity, nightly_rate_cents, updated_at
		 FROM rooms ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.List: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("roomRepo.List: scan: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.List: rows: %w", err)
	}

	return rooms, nil
}

func (r *RoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx,
		`SELECT id, name, description, capacity, nightly_rate_cents, updated_at
		 FROM rooms WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("roomRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetByID: %w", err)
	}

	return room, nil
}

func (r *RoomRepo) Upsert(ctx context.Context, room *domain.Room) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description, capacity, nightly_rate_cents, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     capacity = excluded.capacity,
		     nightly_rate_cents = excluded.nightly_rate_cents,
		     updated_at = excluded.updated_at`,
		room.ID, room.Name, room.Description, room.Capacity, room.NightlyRateCents, toNanos(room.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("roomRepo.Upsert: %w", err)
	}

	return nil
}

func scanRoom(row rowScanner) (*domain.Room, error) {
	var (
		room      domain.Room
		updatedAt int64
	)
	if err := row.Scan(&room.ID, &room.Name, &room.Description, &room.Capacity, &room.NightlyRateCents, &updatedAt); err != nil {
		return nil, err
	}
	room.UpdatedAt = fromNanos(updatedAt)

	return &room, nil
}

type BookingRepo struct {
	db *sql.DB
}

// Create inserts only when the room exists, so an unknown room is reported
// as ErrNotFound rather than a driver-specific constraint error.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)`,
		b.ID.String(), b.RoomID, b.GuestName, b.CheckinDate, b.CheckoutDate, b.Notes, b.Status, toNanos(b.CreatedAt),
		b.RoomID,
	)
	if err != nil {
		return fmt.Errorf("bookingRepo.Create: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bookingRepo.Create: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bookingRepo.Create: room %q: %w", b.RoomID, domain.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bookingRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("bookingRepo.GetByID: %w", err)
	}

	return b, nil
}

func (r *BookingRepo) List(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE ? = '' OR room_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		roomID, roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("bookingRepo.List: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookingRepo.List: scan: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookingRepo.List: rows: %w", err)
	}

	return bookings, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b         domain.Booking
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &b.RoomID, &b.GuestName, &b.CheckinDate, &b.CheckoutDate, &b.Notes, &b.Status, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	b.CreatedAt = fromNanos(createdAt)

	return &b, nil
}
