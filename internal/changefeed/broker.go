package changefeed

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

const brokerBuffer = 64

// Broker is the in-process Transport used when Redis is not configured
// (single-binary deployments). Slow subscribers with a full buffer miss
// events rather than blocking the publisher.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string]map[chan []byte]struct{})}
}

func (b *Broker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[channel] {
		select {
		case ch <- payload:
		default:
			log.Debug().Str("channel", channel).Msg("broker subscriber full, dropping event")
		}
	}
	return nil
}

// Subscribe registers a subscriber on channel. The returned channel is closed
// by cleanup or when ctx ends.
func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, brokerBuffer)

	b.mu.Lock()
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan []byte]struct{})
	}
	b.subscribers[channel][ch] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			delete(b.subscribers[channel], ch)
			if len(b.subscribers[channel]) == 0 {
				delete(b.subscribers, channel)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()

	return ch, cleanup, nil
}
