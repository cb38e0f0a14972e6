package notify

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDedupeCapacity bounds how many answers a listener remembers.
const DefaultDedupeCapacity = 256

// DedupeCache remembers which answers were already played.
type DedupeCache interface {
	HasSeen(key string) bool
	MarkSeen(key string)
}

// LRU is a bounded DedupeCache. Once full, the least recently marked key is
// forgotten, so a very old answer replayed after many newer ones would play
// again.
type LRU struct {
	cache *lru.Cache[string, struct{}]
}

func NewLRU(capacity int) (*LRU, error) {
	if capacity <= 0 {
		capacity = DefaultDedupeCapacity
	}
	c, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("notify.NewLRU: %w", err)
	}
	return &LRU{cache: c}, nil
}

// HasSeen does not refresh recency.
func (l *LRU) HasSeen(key string) bool {
	return l.cache.Contains(key)
}

func (l *LRU) MarkSeen(key string) {
	l.cache.Add(key, struct{}{})
}

func (l *LRU) Len() int {
	return l.cache.Len()
}
