// Package catalog serves the room catalogue and guest bookings the agent
// quotes from. Bookings are created CONFIRMED and never change afterwards.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/domain"
)

// BookingRequest carries the caller-supplied booking fields.
type BookingRequest struct {
	RoomID       string
	GuestName    string
	CheckinDate  string
	CheckoutDate string
	Notes        string
}

type Service struct {
	rooms    domain.RoomRepository
	bookings domain.BookingRepository
	now      func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(rooms domain.RoomRepository, bookings domain.BookingRepository, opts ...Option) *Service {
	s := &Service{rooms: rooms, bookings: bookings, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog.Service.ListRooms: %w", err)
	}
	return rooms, nil
}

func (s *Service) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.rooms.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("catalog.Service.GetRoom: %w", err)
	}
	return room, nil
}

// PutRoom creates or replaces a catalogue entry. Capacity defaults to 1.
func (s *Service) PutRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	room.ID = strings.TrimSpace(room.ID)
	room.Name = strings.TrimSpace(room.Name)
	switch {
	case room.ID == "":
		return nil, fmt.Errorf("catalog.Service.PutRoom: %w: id is required", domain.ErrInvalidArgument)
	case room.Name == "":
		return nil, fmt.Errorf("catalog.Service.PutRoom: %w: name is required", domain.ErrInvalidArgument)
	case room.Capacity < 0:
		return nil, fmt.Errorf("catalog.Service.PutRoom: %w: capacity must be positive", domain.ErrInvalidArgument)
	case room.NightlyRateCents < 0:
		return nil, fmt.Errorf("catalog.Service.PutRoom: %w: nightly_rate_cents must not be negative", domain.ErrInvalidArgument)
	}
	if room.Capacity == 0 {
		room.Capacity = 1
	}
	room.UpdatedAt = s.stamp()

	if err := s.rooms.Upsert(ctx, &room); err != nil {
		return nil, fmt.Errorf("catalog.Service.PutRoom: %w", err)
	}

	log.Info().Str("room_id", room.ID).Msg("room saved")
	return &room, nil
}

// CreateBooking records a CONFIRMED booking. An unknown room is ErrNotFound.
func (s *Service) CreateBooking(ctx context.Context, in BookingRequest) (*domain.Booking, error) {
	b := &domain.Booking{
		ID:           uuid.New(),
		RoomID:       strings.TrimSpace(in.RoomID),
		GuestName:    strings.TrimSpace(in.GuestName),
		CheckinDate:  strings.TrimSpace(in.CheckinDate),
		CheckoutDate: strings.TrimSpace(in.CheckoutDate),
		Notes:        strings.TrimSpace(in.Notes),
		Status:       domain.BookingStatusConfirmed,
		CreatedAt:    s.stamp(),
	}

	var missing []string
	if b.RoomID == "" {
		missing = append(missing, "room_id")
	}
	if b.GuestName == "" {
		missing = append(missing, "guest_name")
	}
	if b.CheckinDate == "" {
		missing = append(missing, "checkin_date")
	}
	if b.CheckoutDate == "" {
		missing = append(missing, "checkout_date")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("catalog.Service.CreateBooking: %w: missing required fields: %s",
			domain.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	if err := domain.ValidateStay(b.CheckinDate, b.CheckoutDate); err != nil {
		return nil, fmt.Errorf("catalog.Service.CreateBooking: %w", err)
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("catalog.Service.CreateBooking: %w", err)
	}

	log.Info().Str("booking_id", b.ID.String()).Str("room_id", b.RoomID).Msg("booking confirmed")
	return b, nil
}

func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("catalog.Service.GetBooking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings newest first, optionally for one room.
func (s *Service) ListBookings(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error) {
	bookings, err := s.bookings.List(ctx, strings.TrimSpace(roomID), limit)
	if err != nil {
		return nil, fmt.Errorf("catalog.Service.ListBookings: %w", err)
	}
	return bookings, nil
}
