package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/catalog"
	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/resolution"
	"github.com/gosuda/frontdesk/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated user for DoCtx
// ---------------------------------------------------------------------------

func adminCtx(user string) context.Context {
	ctx := context.WithValue(context.Background(), middleware.ContextKeyUser, user)
	return context.WithValue(ctx, middleware.ContextKeyUserRole, middleware.RoleAdmin)
}

// ---------------------------------------------------------------------------
// Mock RequestService
// ---------------------------------------------------------------------------

type mockRequestService struct {
	createFunc          func(ctx context.Context, callerID *string, question string) (*domain.HelpRequest, error)
	getFunc             func(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	listByStatusFunc    func(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error)
	resolveFunc         func(ctx context.Context, id uuid.UUID, answer, by string) (*domain.HelpRequest, error)
	resolveAndSpeakFunc func(ctx context.Context, id uuid.UUID, answer, by string) (*resolution.Result, error)
	speechFunc          func(ctx context.Context, id uuid.UUID) (*domain.AudioArtifact, error)
	archiveFunc         func(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	listKnowledgeFunc   func(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error)
	speechEnabled       bool
}

func (m *mockRequestService) Create(ctx context.Context, callerID *string, question string) (*domain.HelpRequest, error) {
	return m.createFunc(ctx, callerID, question)
}

func (m *mockRequestService) Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRequestService) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error) {
	return m.listByStatusFunc(ctx, status, limit)
}

func (m *mockRequestService) Resolve(ctx context.Context, id uuid.UUID, answer, by string) (*domain.HelpRequest, error) {
	return m.resolveFunc(ctx, id, answer, by)
}

func (m *mockRequestService) ResolveAndSpeak(ctx context.Context, id uuid.UUID, answer, by string) (*resolution.Result, error) {
	return m.resolveAndSpeakFunc(ctx, id, answer, by)
}

func (m *mockRequestService) Speech(ctx context.Context, id uuid.UUID) (*domain.AudioArtifact, error) {
	return m.speechFunc(ctx, id)
}

func (m *mockRequestService) Archive(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	return m.archiveFunc(ctx, id)
}

func (m *mockRequestService) ListKnowledge(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	return m.listKnowledgeFunc(ctx, limit)
}

func (m *mockRequestService) SpeechEnabled() bool { return m.speechEnabled }

// ---------------------------------------------------------------------------
// Mock RoomTokenIssuer
// ---------------------------------------------------------------------------

type mockRoomIssuer struct {
	enabled   bool
	issueFunc func(identity, room string) (string, string, error)
}

func (m *mockRoomIssuer) Enabled() bool { return m.enabled }

func (m *mockRoomIssuer) Issue(identity, room string) (string, string, error) {
	return m.issueFunc(identity, room)
}

// ---------------------------------------------------------------------------
// Mock CatalogService
// ---------------------------------------------------------------------------

type mockCatalogService struct {
	listRoomsFunc     func(ctx context.Context) ([]*domain.Room, error)
	getRoomFunc       func(ctx context.Context, id string) (*domain.Room, error)
	putRoomFunc       func(ctx context.Context, room domain.Room) (*domain.Room, error)
	createBookingFunc func(ctx context.Context, in catalog.BookingRequest) (*domain.Booking, error)
	getBookingFunc    func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	listBookingsFunc  func(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error)
}

func (m *mockCatalogService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return m.listRoomsFunc(ctx)
}

func (m *mockCatalogService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return m.getRoomFunc(ctx, id)
}

func (m *mockCatalogService) PutRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	return m.putRoomFunc(ctx, room)
}

func (m *mockCatalogService) CreateBooking(ctx context.Context, in catalog.BookingRequest) (*domain.Booking, error) {
	return m.createBookingFunc(ctx, in)
}

func (m *mockCatalogService) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return m.getBookingFunc(ctx, id)
}

func (m *mockCatalogService) ListBookings(ctx context.Context, roomID string, limit int) ([]*domain.Booking, error) {
	return m.listBookingsFunc(ctx, roomID, limit)
}
