package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for stay dates.
const DateLayout = "2006-01-02"

// BookingStatusConfirmed is the only status a booking is created with.
const BookingStatusConfirmed = "CONFIRMED"

// Room is a bookable catalogue entry. ID is operator-chosen, e.g. "101".
type Room struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Capacity         int       `json:"capacity"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Booking is a confirmed stay in one room.
type Booking struct {
	ID           uuid.UUID `json:"id"`
	RoomID       string    `json:"room_id"`
	GuestName    string    `json:"guest_name"`
	CheckinDate  string    `json:"checkin_date"`
	CheckoutDate string    `json:"checkout_date"`
	Notes        string    `json:"notes"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidateStay checks both dates parse as DateLayout and checkout is after checkin.
func ValidateStay(checkin, checkout string) error {
	in, err := time.Parse(DateLayout, strings.TrimSpace(checkin))
	if err != nil {
		return fmt.Errorf("%w: checkin_date must be YYYY-MM-DD", ErrInvalidArgument)
	}
	out, err := time.Parse(DateLayout, strings.TrimSpace(checkout))
	if err != nil {
		return fmt.Errorf("%w: checkout_date must be YYYY-MM-DD", ErrInvalidArgument)
	}
	if !out.After(in) {
		return fmt.Errorf("%w: checkout_date must be after checkin_date", ErrInvalidArgument)
	}
	return nil
}

type RoomRepository interface {
	// List returns rooms ordered by ID.
	List(ctx context.Context) ([]*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
	// Upsert inserts or replaces the room keyed by ID.
	Upsert(ctx context.Context, room *Room) error
}

type BookingRepository interface {
	// Create fails with ErrNotFound when the room does not exist.
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// List returns bookings newest first; an empty roomID matches every room.
	List(ctx context.Context, roomID string, limit int) ([]*Booking, error)
}
