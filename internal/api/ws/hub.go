// Package ws streams help-request changes to websocket clients. Every
// connection first receives the current state as snapshot events and then
// every change published afterwards, so a reconnecting client may see the same
// answer twice and must deduplicate.
package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/domain"
)

// queueSnapshotLimit bounds the PENDING snapshot sent to a dashboard.
const queueSnapshotLimit = 500

// SnapshotSource reads current state. *resolution.Engine satisfies it.
type SnapshotSource interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error)
}

// Hub manages WebSocket connections backed by the change feed transport.
type Hub struct {
	subs   changefeed.Subscriber
	source SnapshotSource
}

// NewHub creates a new WebSocket hub.
func NewHub(subs changefeed.Subscriber, source SnapshotSource) *Hub {
	return &Hub{subs: subs, source: source}
}

// ServeRequest streams changes to one help request. Callers use it to learn
// that their question was answered.
func (h *Hub) ServeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}

	// Fail before upgrading so the client gets a proper status.
	if _, err := h.source.Get(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "help request not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load help request", http.StatusInternalServerError)
		return
	}

	h.serve(w, r, changefeed.RequestChannel(id), func(ctx context.Context) ([]*domain.HelpRequest, error) {
		req, err := h.source.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*domain.HelpRequest{req}, nil
	})
}

// ServeQueue streams the supervisor queue: every PENDING request, then every
// change to any request.
func (h *Hub) ServeQueue(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, changefeed.QueueChannel(), func(ctx context.Context) ([]*domain.HelpRequest, error) {
		return h.source.ListByStatus(ctx, domain.StatusPending, queueSnapshotLimit)
	})
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string, snapshot func(context.Context) ([]*domain.HelpRequest, error)) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead cancels ctx when they go away.
	ctx := conn.CloseRead(r.Context())

	// Subscribe before reading the snapshot so nothing published in between is lost.
	messages, cleanup, err := h.subs.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	reqs, err := snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket snapshot")
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}
	for _, req := range reqs {
		payload, err := changefeed.Encode(domain.ChangeSnapshot, req)
		if err != nil {
			log.Error().Err(err).Msg("encode snapshot")
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			log.Debug().Err(err).Msg("websocket write")
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
