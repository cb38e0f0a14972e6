// Package notify is the caller-side half of the notification pipeline. It
// consumes help-request changes, plays each answer at most once, and holds
// playback until the listener has been unlocked by a user gesture.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/domain"
)

// ErrNothingToPlay is returned when every playback path failed.
var ErrNothingToPlay = errors.New("notify: no playback path succeeded") //nolint:gochecknoglobals // sentinel error

// Player renders audio on the caller's device.
type Player interface {
	PlayAudio(ctx context.Context, requestID uuid.UUID, data []byte, mime string) error
	PlayURL(ctx context.Context, requestID uuid.UUID, url string) error
	// SpeakLocal is the device text-to-speech fallback.
	SpeakLocal(ctx context.Context, requestID uuid.UUID, text string) error
}

// SpeechFetcher asks the server for audio on demand.
type SpeechFetcher interface {
	FetchSpeech(ctx context.Context, requestID uuid.UUID) (*domain.AudioArtifact, error)
}

// Listener turns change events into at-most-once playback per answer.
type Listener struct {
	seen    DedupeCache
	player  Player
	fetcher SpeechFetcher

	mu       sync.Mutex
	unlocked bool
	queue    []*domain.HelpRequest
}

// NewListener returns a locked listener. fetcher may be nil.
func NewListener(seen DedupeCache, player Player, fetcher SpeechFetcher) *Listener {
	return &Listener{
		seen:    seen,
		player:  player,
		fetcher: fetcher,
	}
}

// HandleChange plays req's answer if it is new. It reports whether the change
// produced a playback intent (played now or queued). Repeated deliveries of
// the same answer are ignored.
func (l *Listener) HandleChange(ctx context.Context, req *domain.HelpRequest) (bool, error) {
	if req == nil || req.Status != domain.StatusResolved || req.AnswerText == "" || req.AnsweredAt == nil {
		return false, nil
	}

	key := domain.DedupeKey(req.ID, req.AnsweredAt)

	l.mu.Lock()
	if l.seen.HasSeen(key) {
		l.mu.Unlock()
		log.Debug().Str("request_id", req.ID.String()).Msg("answer already played")
		return false, nil
	}
	l.seen.MarkSeen(key)

	if !l.unlocked {
		l.queue = append(l.queue, req)
		l.mu.Unlock()
		log.Info().Str("request_id", req.ID.String()).Msg("playback queued until unlock")
		return true, nil
	}
	l.mu.Unlock()

	if err := l.play(ctx, req); err != nil {
		return true, fmt.Errorf("notify.Listener.HandleChange: %w", err)
	}
	return true, nil
}

// Unlock records the user gesture and plays queued answers in arrival order.
// Later changes play immediately.
func (l *Listener) Unlock(ctx context.Context) error {
	l.mu.Lock()
	l.unlocked = true
	queued := l.queue
	l.queue = nil
	l.mu.Unlock()

	var errs []error
	for _, req := range queued {
		if err := l.play(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify.Listener.Unlock: %w", errors.Join(errs...))
	}
	return nil
}

// Pending returns the number of queued playback intents.
func (l *Listener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// play tries, in order: the artifact carried on the record, on-demand server
// synthesis, local speech. The first success wins.
func (l *Listener) play(ctx context.Context, req *domain.HelpRequest) error {
	var lastErr error

	if audio := req.CachedAudio(); audio != nil {
		if lastErr = l.playArtifact(ctx, req.ID, audio); lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).Str("request_id", req.ID.String()).Msg("cached audio playback failed")
	}

	if l.fetcher != nil {
		audio, err := l.fetcher.FetchSpeech(ctx, req.ID)
		if err == nil {
			err = l.playArtifact(ctx, req.ID, audio)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		log.Info().Err(err).Str("request_id", req.ID.String()).Msg("server speech unavailable, using local speech")
	}

	if err := l.player.SpeakLocal(ctx, req.ID, req.AnswerText); err != nil {
		return fmt.Errorf("%w: %w", ErrNothingToPlay, errors.Join(lastErr, err))
	}
	return nil
}

func (l *Listener) playArtifact(ctx context.Context, id uuid.UUID, audio *domain.AudioArtifact) error {
	switch {
	case len(audio.Data) > 0:
		return l.player.PlayAudio(ctx, id, audio.Data, audio.MIME)
	case audio.URL != "":
		return l.player.PlayURL(ctx, id, audio.URL)
	default:
		return fmt.Errorf("%w: empty audio artifact", domain.ErrUnavailable)
	}
}
