package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/catalog"
	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/resolution"
)

// RequestService abstracts the help-request lifecycle for handler testing.
// *resolution.Engine satisfies this interface.
type RequestService interface {
	Create(ctx context.Context, callerID *string, questionText string) (*domain.HelpRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error)
	Resolve(ctx context.Context, id uuid.UUID, answerText, answeredBy string) (*domain.HelpRequest, error)
	ResolveAndSpeak(ctx context.Context, id uuid.UUID, answerText, answeredBy string) (*resolution.Result, error)
	Speech(ctx context.Context, id uuid.UUID) (*domain.AudioArtifact, error)
	Archive(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	ListKnowledge(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error)
	SpeechEnabled() bool
}

// RoomTokenIssuer abstracts the room-transport token mint.
// *auth.RoomTokens satisfies this interface.
type RoomTokenIssuer interface {
	Enabled() bool
	Issue(identity, room string) (token, url string, err error)
}

// CatalogService abstracts rooms and bookings for handler testing.
// *catalog.Service satisfies this interface.
type CatalogService interface {
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	PutRoom(ctx context.Context, room domain.Room) (*domain.Room, error)
	CreateBooking(ctx context.Context, in catalog.BookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListBookings(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error)
}
