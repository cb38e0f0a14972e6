package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/catalog"
	"github.com/gosuda/frontdesk/internal/domain"
)

// --- Input/Output types ---

type RoomBody struct {
	Room *domain.Room `json:"room"`
}

type RoomOutput struct {
	Body RoomBody
}

type ListRoomsOutput struct {
	Body struct {
		Rooms []*domain.Room `json:"rooms"`
	}
}

type GetRoomInput struct {
	ID string `path:"id" maxLength:"64" doc:"Room ID"`
}

type PutRoomInput struct {
	ID   string `path:"id" maxLength:"64" doc:"Room ID"`
	Body struct {
		Name             string `json:"name,omitempty" maxLength:"200"`
		Description      string `json:"description,omitempty" maxLength:"2000"`
		Capacity         int    `json:"capacity,omitempty" doc:"Guests; defaults to 1"`
		NightlyRateCents int64  `json:"nightly_rate_cents,omitempty"`
	}
}

type CreateBookingInput struct {
	Body struct {
		RoomID       string `json:"room_id,omitempty" maxLength:"64"`
		GuestName    string `json:"guest_name,omitempty" maxLength:"200"`
		CheckinDate  string `json:"checkin_date,omitempty" doc:"YYYY-MM-DD"`
		CheckoutDate string `json:"checkout_date,omitempty" doc:"YYYY-MM-DD, after checkin_date"`
		Notes        string `json:"notes,omitempty" maxLength:"2000"`
	}
}

type BookingBody struct {
	Booking *domain.Booking `json:"booking"`
}

type BookingOutput struct {
	Body BookingBody
}

type GetBookingInput struct {
	ID uuid.UUID `path:"id" doc:"Booking ID"`
}

type ListBookingsInput struct {
	RoomID string `query:"room_id" doc:"Only bookings for this room"`
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"500"`
}

type ListBookingsOutput struct {
	Body struct {
		Count    int               `json:"count"`
		Bookings []*domain.Booking `json:"bookings"`
	}
}

// catalogError names the missing resource on 404 and defers to toHumaError otherwise.
func catalogError(msg, notFound string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound(notFound)
	}
	return toHumaError(msg, err)
}

// RegisterCatalogRoutes registers the public room catalogue and booking intake.
func RegisterCatalogRoutes(api huma.API, svc CatalogService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rooms",
		Method:      http.MethodGet,
		Path:        "/rooms",
		Summary:     "List the room catalogue",
		Tags:        []string{"Rooms"},
	}, func(ctx context.Context, _ *struct{}) (*ListRoomsOutput, error) {
		rooms, err := svc.ListRooms(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list rooms", err)
		}
		if rooms == nil {
			rooms = make([]*domain.Room, 0)
		}
		out := &ListRoomsOutput{}
		out.Body.Rooms = rooms
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-room",
		Method:      http.MethodGet,
		Path:        "/rooms/{id}",
		Summary:     "Get a room",
		Tags:        []string{"Rooms"},
	}, func(ctx context.Context, input *GetRoomInput) (*RoomOutput, error) {
		room, err := svc.GetRoom(ctx, input.ID)
		if err != nil {
			return nil, catalogError("failed to get room", "room not found", err)
		}
		return &RoomOutput{Body: RoomBody{Room: room}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-booking",
		Method:        http.MethodPost,
		Path:          "/bookings",
		Summary:       "Book a room",
		Tags:          []string{"Bookings"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBookingInput) (*BookingOutput, error) {
		b, err := svc.CreateBooking(ctx, catalog.BookingRequest{
			RoomID:       input.Body.RoomID,
			GuestName:    input.Body.GuestName,
			CheckinDate:  input.Body.CheckinDate,
			CheckoutDate: input.Body.CheckoutDate,
			Notes:        input.Body.Notes,
		})
		if err != nil {
			return nil, catalogError("failed to create booking", "room not found", err)
		}
		return &BookingOutput{Body: BookingBody{Booking: b}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-booking",
		Method:      http.MethodGet,
		Path:        "/bookings/{id}",
		Summary:     "Get a booking",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *GetBookingInput) (*BookingOutput, error) {
		b, err := svc.GetBooking(ctx, input.ID)
		if err != nil {
			return nil, catalogError("failed to get booking", "booking not found", err)
		}
		return &BookingOutput{Body: BookingBody{Booking: b}}, nil
	})
}

// RegisterCatalogAdminRoutes registers room maintenance and the booking ledger.
func RegisterCatalogAdminRoutes(api huma.API, svc CatalogService) {
	huma.Register(api, huma.Operation{
		OperationID: "put-room",
		Method:      http.MethodPut,
		Path:        "/rooms/{id}",
		Summary:     "Create or replace a room",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *PutRoomInput) (*RoomOutput, error) {
		room, err := svc.PutRoom(ctx, domain.Room{
			ID:               input.ID,
			Name:             input.Body.Name,
			Description:      input.Body.Description,
			Capacity:         input.Body.Capacity,
			NightlyRateCents: input.Body.NightlyRateCents,
		})
		if err != nil {
			return nil, toHumaError("failed to save room", err)
		}
		return &RoomOutput{Body: RoomBody{Room: room}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bookings",
		Method:      http.MethodGet,
		Path:        "/bookings",
		Summary:     "List bookings, newest first",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *ListBookingsInput) (*ListBookingsOutput, error) {
		bookings, err := svc.ListBookings(ctx, input.RoomID, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list bookings", err)
		}
		if bookings == nil {
			bookings = make([]*domain.Booking, 0)
		}
		out := &ListBookingsOutput{}
		out.Body.Count = len(bookings)
		out.Body.Bookings = bookings
		return out, nil
	})
}
