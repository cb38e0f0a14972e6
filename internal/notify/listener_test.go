package notify_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/notify"
)

// --- mocks ---

type playback struct {
	kind string // "audio", "url", "local"
	id   uuid.UUID
	body string
}

type mockPlayer struct {
	mu        sync.Mutex
	plays     []playback
	audioErr  error
	localErr  error
	playedSig chan struct{}
}

func (p *mockPlayer) record(pb playback) {
	p.mu.Lock()
	p.plays = append(p.plays, pb)
	p.mu.Unlock()
	if p.playedSig != nil {
		p.playedSig <- struct{}{}
	}
}

func (p *mockPlayer) PlayAudio(_ context.Context, id uuid.UUID, data []byte, _ string) error {
	if p.audioErr != nil {
		return p.audioErr
	}
	p.record(playback{kind: "audio", id: id, body: string(data)})
	return nil
}

func (p *mockPlayer) PlayURL(_ context.Context, id uuid.UUID, url string) error {
	p.record(playback{kind: "url", id: id, body: url})
	return nil
}

func (p *mockPlayer) SpeakLocal(_ context.Context, id uuid.UUID, text string) error {
	if p.localErr != nil {
		return p.localErr
	}
	p.record(playback{kind: "local", id: id, body: text})
	return nil
}

func (p *mockPlayer) snapshot() []playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]playback(nil), p.plays...)
}

type mockFetcher struct {
	audio *domain.AudioArtifact
	err   error
	calls int
}

func (f *mockFetcher) FetchSpeech(context.Context, uuid.UUID) (*domain.AudioArtifact, error) {
	f.calls++
	return f.audio, f.err
}

func resolvedRequest(answer string, answeredAt time.Time) *domain.HelpRequest {
	return &domain.HelpRequest{
		ID:           uuid.New(),
		QuestionText: "q",
		Status:       domain.StatusResolved,
		AnswerText:   answer,
		AnsweredAt:   &answeredAt,
	}
}

func newUnlockedListener(t *testing.T, player notify.Player, fetcher notify.SpeechFetcher) *notify.Listener {
	t.Helper()

	seen, err := notify.NewLRU(16)
	require.NoError(t, err)
	l := notify.NewListener(seen, player, fetcher)
	require.NoError(t, l.Unlock(context.Background()))
	return l
}

func TestListener_DuplicateDeliveryPlaysOnce(t *testing.T) {
	t.Parallel()

	player := &mockPlayer{}
	l := newUnlockedListener(t, player, nil)
	req := resolvedRequest("Checkout is at 11am", time.Now())

	first, err := l.HandleChange(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first)

	// Same logical change re-delivered, e.g. after a reconnect replay.
	dup := *req
	second, err := l.HandleChange(context.Background(), &dup)
	require.NoError(t, err)
	assert.False(t, second)

	plays := player.snapshot()
	require.Len(t, plays, 1)
	assert.Equal(t, "local", plays[0].kind)
	assert.Equal(t, "Checkout is at 11am", plays[0].body)
}

func TestListener_IgnoresNonAnswers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name string
		req  *domain.HelpRequest
	}{
		{name: "nil", req: nil},
		{name: "pending", req: &domain.HelpRequest{ID: uuid.New(), Status: domain.StatusPending}},
		{name: "unresolved", req: &domain.HelpRequest{ID: uuid.New(), Status: domain.StatusUnresolved, UnresolvedAt: &now}},
		{name: "resolved without text", req: &domain.HelpRequest{ID: uuid.New(), Status: domain.StatusResolved, AnsweredAt: &now}},
		{name: "archived", req: &domain.HelpRequest{ID: uuid.New(), Status: domain.StatusArchived, AnswerText: "a", AnsweredAt: &now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			player := &mockPlayer{}
			l := newUnlockedListener(t, player, nil)
			played, err := l.HandleChange(context.Background(), tt.req)
			require.NoError(t, err)
			assert.False(t, played)
			assert.Empty(t, player.snapshot())
		})
	}
}

func TestListener_QueuesUntilUnlock(t *testing.T) {
	t.Parallel()

	seen, err := notify.NewLRU(16)
	require.NoError(t, err)
	player := &mockPlayer{}
	l := notify.NewListener(seen, player, nil)
	ctx := context.Background()

	a := resolvedRequest("first", time.Now())
	b := resolvedRequest("second", time.Now())

	for _, r := range []*domain.HelpRequest{a, b, a} {
		_, err := l.HandleChange(ctx, r)
		require.NoError(t, err)
	}
	assert.Empty(t, player.snapshot(), "nothing plays before unlock")
	assert.Equal(t, 2, l.Pending())

	require.NoError(t, l.Unlock(ctx))

	plays := player.snapshot()
	require.Len(t, plays, 2)
	assert.Equal(t, "first", plays[0].body)
	assert.Equal(t, "second", plays[1].body)
	assert.Equal(t, 0, l.Pending())

	c := resolvedRequest("third", time.Now())
	_, err = l.HandleChange(ctx, c)
	require.NoError(t, err)
	assert.Len(t, player.snapshot(), 3, "plays immediately once unlocked")
}

func TestListener_PlaybackPreference(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	t.Run("cached bytes", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{}
		fetcher := &mockFetcher{}
		l := newUnlockedListener(t, player, fetcher)

		req := resolvedRequest("a", now)
		req.Audio = &domain.AudioArtifact{Data: []byte("mp3"), MIME: "audio/mpeg", AnsweredAt: now}
		_, err := l.HandleChange(context.Background(), req)
		require.NoError(t, err)

		plays := player.snapshot()
		require.Len(t, plays, 1)
		assert.Equal(t, "audio", plays[0].kind)
		assert.Equal(t, 0, fetcher.calls)
	})

	t.Run("cached url", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{}
		l := newUnlockedListener(t, player, nil)

		req := resolvedRequest("a", now)
		req.Audio = &domain.AudioArtifact{URL: "https://cdn.example/a.mp3", AnsweredAt: now}
		_, err := l.HandleChange(context.Background(), req)
		require.NoError(t, err)

		plays := player.snapshot()
		require.Len(t, plays, 1)
		assert.Equal(t, "url", plays[0].kind)
	})

	t.Run("stale artifact ignored, fetched instead", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{}
		fetcher := &mockFetcher{audio: &domain.AudioArtifact{Data: []byte("fresh"), MIME: "audio/mpeg"}}
		l := newUnlockedListener(t, player, fetcher)

		req := resolvedRequest("a", now)
		req.Audio = &domain.AudioArtifact{Data: []byte("old"), AnsweredAt: now.Add(-time.Hour)}
		_, err := l.HandleChange(context.Background(), req)
		require.NoError(t, err)

		plays := player.snapshot()
		require.Len(t, plays, 1)
		assert.Equal(t, "fresh", plays[0].body)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("fetch fails, local speech", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{}
		fetcher := &mockFetcher{err: domain.ErrUnavailable}
		l := newUnlockedListener(t, player, fetcher)

		_, err := l.HandleChange(context.Background(), resolvedRequest("spoken locally", now))
		require.NoError(t, err)

		plays := player.snapshot()
		require.Len(t, plays, 1)
		assert.Equal(t, "local", plays[0].kind)
		assert.Equal(t, "spoken locally", plays[0].body)
	})

	t.Run("audio player broken, falls through", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{audioErr: errors.New("no device")}
		l := newUnlockedListener(t, player, nil)

		req := resolvedRequest("a", now)
		req.Audio = &domain.AudioArtifact{Data: []byte("mp3"), AnsweredAt: now}
		_, err := l.HandleChange(context.Background(), req)
		require.NoError(t, err)

		plays := player.snapshot()
		require.Len(t, plays, 1)
		assert.Equal(t, "local", plays[0].kind)
	})

	t.Run("everything fails", func(t *testing.T) {
		t.Parallel()

		player := &mockPlayer{localErr: errors.New("tts missing")}
		l := newUnlockedListener(t, player, &mockFetcher{err: domain.ErrUnavailable})

		played, err := l.HandleChange(context.Background(), resolvedRequest("a", now))
		assert.True(t, played)
		assert.ErrorIs(t, err, notify.ErrNothingToPlay)
	})
}

func TestListener_NewAnswerForSameRequestPlaysAgain(t *testing.T) {
	t.Parallel()

	player := &mockPlayer{}
	l := newUnlockedListener(t, player, nil)

	req := resolvedRequest("a", time.Now())
	_, err := l.HandleChange(context.Background(), req)
	require.NoError(t, err)

	later := req.AnsweredAt.Add(time.Second)
	again := *req
	again.AnsweredAt = &later
	_, err = l.HandleChange(context.Background(), &again)
	require.NoError(t, err)

	assert.Len(t, player.snapshot(), 2)
}

func TestLRU(t *testing.T) {
	t.Parallel()

	t.Run("evicts oldest", func(t *testing.T) {
		t.Parallel()

		c, err := notify.NewLRU(2)
		require.NoError(t, err)

		c.MarkSeen("a")
		c.MarkSeen("b")
		c.MarkSeen("c")

		assert.False(t, c.HasSeen("a"))
		assert.True(t, c.HasSeen("b"))
		assert.True(t, c.HasSeen("c"))
		assert.Equal(t, 2, c.Len())
	})

	t.Run("default capacity", func(t *testing.T) {
		t.Parallel()

		c, err := notify.NewLRU(0)
		require.NoError(t, err)
		for i := range notify.DefaultDedupeCapacity + 10 {
			c.MarkSeen(fmt.Sprintf("k%d", i))
		}
		assert.Equal(t, notify.DefaultDedupeCapacity, c.Len())
	})

	t.Run("bounded and remembers latest", func(t *testing.T) {
		t.Parallel()

		rapid.Check(t, func(rt *rapid.T) {
			capacity := rapid.IntRange(1, 32).Draw(rt, "capacity")
			keys := rapid.SliceOf(rapid.StringMatching(`[a-f]{1,3}`)).Draw(rt, "keys")

			c, err := notify.NewLRU(capacity)
			if err != nil {
				rt.Fatal(err)
			}
			for _, k := range keys {
				c.MarkSeen(k)
				if !c.HasSeen(k) {
					rt.Fatalf("just-marked key %q not seen", k)
				}
				if c.Len() > capacity {
					rt.Fatalf("len %d exceeds capacity %d", c.Len(), capacity)
				}
			}
		})
	})
}
