package auth

import (
	"fmt"
	"strings"
	"time"

	lkauth "github.com/livekit/protocol/auth"

	"github.com/gosuda/frontdesk/internal/domain"
)

// DefaultRoomTokenTTL matches the LiveKit server SDK default.
const DefaultRoomTokenTTL = 6 * time.Hour

// RoomTokens mints access tokens for the LiveKit-compatible room transport.
// The zero value is disabled.
type RoomTokens struct {
	apiKey    string
	apiSecret string
	url       string
	ttl       time.Duration
	now       func() time.Time
}

func NewRoomTokens(apiKey, apiSecret, url string, ttl time.Duration) *RoomTokens {
	if ttl <= 0 {
		ttl = DefaultRoomTokenTTL
	}
	return &RoomTokens{apiKey: apiKey, apiSecret: apiSecret, url: url, ttl: ttl, now: time.Now}
}

// Enabled reports whether key, secret and url are all configured.
func (r *RoomTokens) Enabled() bool {
	return r != nil && r.apiKey != "" && r.apiSecret != "" && r.url != ""
}

// Issue returns a signed token for identity and the server URL to dial.
// An empty identity gets a generated one; an empty room grants no join.
func (r *RoomTokens) Issue(identity, room string) (token, url string, err error) {
	if !r.Enabled() {
		return "", "", fmt.Errorf("auth.RoomTokens.Issue: %w: room transport not configured", domain.ErrUnavailable)
	}

	identity = strings.TrimSpace(identity)
	if identity == "" {
		identity = fmt.Sprintf("user_%d", r.now().UnixMilli())
	}

	at := lkauth.NewAccessToken(r.apiKey, r.apiSecret).
		SetIdentity(identity).
		SetName(identity).
		SetValidFor(r.ttl)
	if room = strings.TrimSpace(room); room != "" {
		at.SetVideoGrant(&lkauth.VideoGrant{RoomJoin: true, Room: room})
	}

	signed, err := at.ToJWT()
	if err != nil {
		return "", "", fmt.Errorf("auth.RoomTokens.Issue: %w", err)
	}
	return signed, r.url, nil
}
