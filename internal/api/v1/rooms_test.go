package v1_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/frontdesk/internal/api/v1"
)

func TestCreateRoomToken(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		issuer := &mockRoomIssuer{
			enabled: true,
			issueFunc: func(identity, room string) (string, string, error) {
				assert.Equal(t, "caller-7", identity)
				assert.Equal(t, "frontdesk-demo", room)
				return "signed.jwt.token", "wss://lk.example", nil
			},
		}
		v1.RegisterRoomRoutes(api, issuer)

		resp := api.Post("/rooms/token", map[string]any{"identity": "caller-7", "room": "frontdesk-demo"})

		require.Equal(t, http.StatusOK, resp.Code)
		var body struct {
			Token string `json:"token"`
			URL   string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "signed.jwt.token", body.Token)
		assert.Equal(t, "wss://lk.example", body.URL)
	})

	tests := []struct {
		name   string
		issuer v1.RoomTokenIssuer
	}{
		{name: "nil_issuer", issuer: nil},
		{name: "not_configured", issuer: &mockRoomIssuer{enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, api := humatest.New(t)
			v1.RegisterRoomRoutes(api, tt.issuer)

			resp := api.Post("/rooms/token", map[string]any{})

			assert.Equal(t, http.StatusNotImplemented, resp.Code)
		})
	}
}
