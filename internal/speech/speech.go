// Package speech turns answer text into playable audio.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/frontdesk/internal/domain"
)

// MIMEMPEG is the content type of every clip this package produces.
const MIMEMPEG = "audio/mpeg"

// Clip is synthesized audio. Exactly one of Data or URL is set.
type Clip struct {
	Data []byte
	MIME string
	URL  string
}

// Synthesizer converts text to audio. Implementations return an error wrapping
// domain.ErrUnavailable when synthesis is not configured.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*Clip, error)
}

// Disabled is the Synthesizer used when no speech backend is configured.
type Disabled struct{}

func (Disabled) Synthesize(context.Context, string) (*Clip, error) {
	return nil, fmt.Errorf("speech.Disabled.Synthesize: %w", domain.ErrUnavailable)
}

// Enabled reports whether s can ever produce audio.
func Enabled(s Synthesizer) bool {
	if s == nil {
		return false
	}
	if t, ok := s.(*Timeout); ok {
		return Enabled(t.next)
	}
	_, disabled := s.(Disabled)
	return !disabled
}

// Timeout bounds each Synthesize call. A deadline hit surfaces as
// domain.ErrUnavailable so callers treat it like any other synthesis failure.
type Timeout struct {
	next    Synthesizer
	timeout time.Duration
}

func WithTimeout(next Synthesizer, timeout time.Duration) *Timeout {
	return &Timeout{next: next, timeout: timeout}
}

func (t *Timeout) Synthesize(ctx context.Context, text string) (*Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("speech.Timeout.Synthesize: %w: empty text", domain.ErrInvalidArgument)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	clip, err := t.next.Synthesize(ctx, text)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("speech.Timeout.Synthesize: %w: timed out after %s", domain.ErrUnavailable, t.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("speech.Timeout.Synthesize: %w", err)
	}
	if clip == nil || (len(clip.Data) == 0 && clip.URL == "") {
		return nil, fmt.Errorf("speech.Timeout.Synthesize: %w: empty clip", domain.ErrUnavailable)
	}

	return clip, nil
}
