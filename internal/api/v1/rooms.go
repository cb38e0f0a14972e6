package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type RoomTokenInput struct {
	Body struct {
		Identity string `json:"identity,omitempty" maxLength:"128" doc:"Participant identity; generated when empty"`
		Room     string `json:"room,omitempty" maxLength:"128" doc:"Room to grant join on"`
	}
}

type RoomTokenOutput struct {
	Body struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
}

// RegisterRoomRoutes registers the room-transport token mint. issuer may be
// nil, in which case the route answers 501.
func RegisterRoomRoutes(api huma.API, issuer RoomTokenIssuer) {
	huma.Register(api, huma.Operation{
		OperationID: "create-room-token",
		Method:      http.MethodPost,
		Path:        "/rooms/token",
		Summary:     "Mint a room access token",
		Tags:        []string{"Rooms"},
	}, func(_ context.Context, input *RoomTokenInput) (*RoomTokenOutput, error) {
		if issuer == nil || !issuer.Enabled() {
			return nil, huma.Error501NotImplemented("room transport is not configured")
		}

		token, url, err := issuer.Issue(input.Body.Identity, input.Body.Room)
		if err != nil {
			return nil, toHumaError("failed to issue room token", err)
		}

		out := &RoomTokenOutput{}
		out.Body.Token = token
		out.Body.URL = url
		return out, nil
	})
}
