// Package changefeed publishes help-request changes to the per-request and
// supervisor-queue channels. The transport is either Redis pub/sub or the
// in-process Broker.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Transport is implemented by redis.PubSub and Broker.
type Transport interface {
	Publisher
	Subscriber
}

// RequestChannel returns the channel name carrying changes to one help request.
func RequestChannel(requestID uuid.UUID) string {
	return "request:" + requestID.String()
}

// QueueChannel returns the channel name for the supervisor queue. Every
// help-request change is published here as well.
func QueueChannel() string {
	return "queue:help_requests"
}

// Feed encodes ChangeEvents and publishes them to both channels.
type Feed struct {
	pub Publisher
}

func NewFeed(pub Publisher) *Feed {
	return &Feed{pub: pub}
}

// Emit publishes the change. Failures are logged, not returned: the change
// stream is best-effort and subscribers resync from a snapshot.
func (f *Feed) Emit(ctx context.Context, typ domain.ChangeType, req *domain.HelpRequest) {
	if f == nil || f.pub == nil || req == nil {
		return
	}

	payload, err := Encode(typ, req)
	if err != nil {
		log.Error().Err(err).Str("request_id", req.ID.String()).Msg("encode change event")
		return
	}

	for _, ch := range []string{RequestChannel(req.ID), QueueChannel()} {
		if err := f.pub.Publish(ctx, ch, payload); err != nil {
			log.Warn().Err(err).
				Str("request_id", req.ID.String()).
				Str("channel", ch).
				Str("type", string(typ)).
				Msg("publish change event")
		}
	}
}

func Encode(typ domain.ChangeType, req *domain.HelpRequest) ([]byte, error) {
	payload, err := json.Marshal(domain.ChangeEvent{Type: typ, Request: req})
	if err != nil {
		return nil, fmt.Errorf("changefeed.Encode: %w", err)
	}
	return payload, nil
}

func Decode(payload []byte) (*domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("changefeed.Decode: %w", err)
	}
	if ev.Request == nil {
		return nil, fmt.Errorf("changefeed.Decode: %w: missing request", domain.ErrInvalidArgument)
	}
	return &ev, nil
}
