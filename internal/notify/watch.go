package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/changefeed"
)

// maxMessageBytes allows change events that carry inline audio.
const maxMessageBytes = 16 << 20

type WatchOptions struct {
	Header     http.Header
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Watch streams change events from wsURL into l until ctx is done,
// reconnecting with exponential backoff. The server replays a snapshot on
// every connect, so the same answer may arrive more than once; the listener
// deduplicates.
func Watch(ctx context.Context, wsURL string, l *Listener, opts WatchOptions) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.MinBackoff
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = 500 * time.Millisecond
	}
	bo.MaxInterval = opts.MaxBackoff
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = 30 * time.Second
	}
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		connected, err := watchOnce(ctx, wsURL, l, opts.Header)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		log.Warn().Err(err).Str("url", wsURL).Dur("retry_in", wait).Msg("change stream disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// watchOnce reports whether the dial succeeded.
func watchOnce(ctx context.Context, wsURL string, l *Listener, header http.Header) (bool, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return false, fmt.Errorf("notify.Watch: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	log.Info().Str("url", wsURL).Msg("change stream connected")

	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return true, fmt.Errorf("notify.Watch: read: %w", err)
		}

		ev, err := changefeed.Decode(payload)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed change event")
			continue
		}

		if _, err := l.HandleChange(ctx, ev.Request); err != nil {
			log.Error().Err(err).Str("request_id", ev.Request.ID.String()).Msg("playback failed")
		}
	}
}
