// Package resolution owns the help-request lifecycle on the answering side:
// intake, resolve, resolve-and-speak, speech lookup, and archive. Every state
// change is a conditional store write; the engine never mutates on a status
// it has not re-checked in the same statement.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/gosuda/frontdesk/internal/changefeed"
	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/speech"
)

// Emitter publishes lifecycle changes. *changefeed.Feed satisfies it.
type Emitter interface {
	Emit(ctx context.Context, typ domain.ChangeType, req *domain.HelpRequest)
}

type Engine struct {
	requests  domain.HelpRequestRepository
	knowledge domain.KnowledgeRepository
	synth     speech.Synthesizer
	emitter   Emitter
	now       func() time.Time

	// inflight collapses concurrent synthesis for the same answer.
	inflight singleflight.Group
}

type Option func(*Engine)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(requests domain.HelpRequestRepository, knowledge domain.KnowledgeRepository, synth speech.Synthesizer, emitter Emitter, opts ...Option) *Engine {
	if synth == nil {
		synth = speech.Disabled{}
	}
	if emitter == nil {
		emitter = (*changefeed.Feed)(nil)
	}

	e := &Engine{
		requests:  requests,
		knowledge: knowledge,
		synth:     synth,
		emitter:   emitter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SpeechEnabled reports whether server-side synthesis is configured.
func (e *Engine) SpeechEnabled() bool { return speech.Enabled(e.synth) }

// stamp returns the current time at the precision both stores round-trip.
func (e *Engine) stamp() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

// Create opens a new PENDING help request.
func (e *Engine) Create(ctx context.Context, callerID *string, questionText string) (*domain.HelpRequest, error) {
	questionText = strings.TrimSpace(questionText)
	if questionText == "" {
		return nil, fmt.Errorf("resolution.Engine.Create: %w: question_text is required", domain.ErrInvalidArgument)
	}

	if callerID != nil {
		trimmed := strings.TrimSpace(*callerID)
		callerID = &trimmed
		if trimmed == "" {
			callerID = nil
		}
	}

	req := &domain.HelpRequest{
		ID:           uuid.New(),
		CallerID:     callerID,
		QuestionText: questionText,
		Status:       domain.StatusPending,
		CreatedAt:    e.stamp(),
	}
	if err := e.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("resolution.Engine.Create: %w", err)
	}

	log.Info().Str("request_id", req.ID.String()).Msg("help request created")
	e.emitter.Emit(ctx, domain.ChangeCreated, req)

	return req, nil
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Get: %w", err)
	}
	return req, nil
}

// ListByStatus returns requests in status, oldest first.
func (e *Engine) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("resolution.Engine.ListByStatus: %w: unknown status %q", domain.ErrInvalidArgument, status)
	}
	reqs, err := e.requests.ListByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.ListByStatus: %w", err)
	}
	return reqs, nil
}

// ListKnowledge returns learned answers, newest first.
func (e *Engine) ListKnowledge(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	entries, err := e.knowledge.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.ListKnowledge: %w", err)
	}
	return entries, nil
}

// Resolve answers a PENDING request and records the answer in the knowledge
// log in the same transaction. Resolving an already RESOLVED request returns
// it unchanged. UNRESOLVED or ARCHIVED requests yield ErrInvalidState; losing
// the conditional write to a concurrent sweep yields ErrConflict.
func (e *Engine) Resolve(ctx context.Context, id uuid.UUID, answerText, answeredBy string) (*domain.HelpRequest, error) {
	req, err := e.resolve(ctx, id, answerText, answeredBy)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Resolve: %w", err)
	}
	return req, nil
}

func (e *Engine) resolve(ctx context.Context, id uuid.UUID, answerText, answeredBy string) (*domain.HelpRequest, error) {
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return nil, fmt.Errorf("%w: answer_text is required", domain.ErrInvalidArgument)
	}
	answeredBy = strings.TrimSpace(answeredBy)
	if answeredBy == "" {
		answeredBy = domain.DefaultAnsweredBy
	}

	current, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch current.Status {
	case domain.StatusResolved:
		return current, nil
	case domain.StatusPending:
	default:
		return nil, fmt.Errorf("%w: request is %s", domain.ErrInvalidState, current.Status)
	}

	at := e.stamp()
	entry := &domain.KnowledgeEntry{
		ID:           uuid.New(),
		RequestID:    id,
		QuestionText: current.QuestionText,
		AnswerText:   answerText,
		CreatedAt:    at,
		CreatedBy:    answeredBy,
	}

	resolved, err := e.requests.Resolve(ctx, id, domain.Resolution{
		AnswerText: answerText,
		AnsweredBy: answeredBy,
		AnsweredAt: at,
	}, entry)
	if errors.Is(err, domain.ErrConflict) {
		// Someone moved it first. A concurrent resolve is still a success for us.
		latest, getErr := e.requests.GetByID(ctx, id)
		if getErr == nil && latest.Status == domain.StatusResolved {
			return latest, nil
		}
		log.Info().Str("request_id", id.String()).Msg("resolve lost race")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", id.String()).
		Str("answered_by", answeredBy).
		Msg("help request resolved")
	e.emitter.Emit(ctx, domain.ChangeResolved, resolved)

	return resolved, nil
}

// Result is the outcome of ResolveAndSpeak. Audio is nil when synthesis
// failed or is disabled; SpeechError then says why and clients fall back to
// local speech.
type Result struct {
	Request     *domain.HelpRequest
	Audio       *domain.AudioArtifact
	SpeechError string
}

// ResolveAndSpeak resolves like Resolve and then attaches synthesized audio
// for the answer. Synthesis failure never fails the call. An artifact already
// stored for the current answer is returned as-is.
func (e *Engine) ResolveAndSpeak(ctx context.Context, id uuid.UUID, answerText, answeredBy string) (*Result, error) {
	req, err := e.resolve(ctx, id, answerText, answeredBy)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.ResolveAndSpeak: %w", err)
	}

	res := &Result{Request: req}

	updated, err := e.speak(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("request_id", id.String()).Msg("speech synthesis skipped")
		res.SpeechError = speechAdvisory(err)
		return res, nil
	}

	res.Request = updated
	res.Audio = updated.CachedAudio()
	return res, nil
}

// Speech returns audio for the current answer, synthesizing and caching it on
// first use. ErrInvalidState means there is no answer yet; ErrUnavailable
// means synthesis is disabled or failing.
func (e *Engine) Speech(ctx context.Context, id uuid.UUID) (*domain.AudioArtifact, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Speech: %w", err)
	}
	if req.AnsweredAt == nil || req.AnswerText == "" {
		return nil, fmt.Errorf("resolution.Engine.Speech: %w: request has no answer", domain.ErrInvalidState)
	}
	if cached := req.CachedAudio(); cached != nil {
		return cached, nil
	}

	updated, err := e.speak(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Speech: %w", err)
	}
	return updated.CachedAudio(), nil
}

// speak makes sure req carries audio for its current answer and returns the
// stored record.
func (e *Engine) speak(ctx context.Context, req *domain.HelpRequest) (*domain.HelpRequest, error) {
	if req.CachedAudio() != nil {
		return req, nil
	}
	if !e.SpeechEnabled() {
		return nil, fmt.Errorf("%w: speech synthesis is not configured", domain.ErrUnavailable)
	}
	if req.AnsweredAt == nil {
		return nil, fmt.Errorf("%w: request has no answer", domain.ErrInvalidState)
	}

	key := domain.DedupeKey(req.ID, req.AnsweredAt)
	v, err, _ := e.inflight.Do(key, func() (any, error) {
		return e.synthesizeAndAttach(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.HelpRequest), nil
}

func (e *Engine) synthesizeAndAttach(ctx context.Context, req *domain.HelpRequest) (*domain.HelpRequest, error) {
	// req may have been read before an earlier flight for this key finished.
	fresh, err := e.requests.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if fresh.CachedAudio() != nil {
		return fresh, nil
	}
	if fresh.AnsweredAt == nil || !fresh.AnsweredAt.Equal(*req.AnsweredAt) {
		return nil, fmt.Errorf("%w: answer changed during synthesis", domain.ErrConflict)
	}

	clip, err := e.synth.Synthesize(ctx, req.AnswerText)
	if err != nil {
		return nil, err
	}

	createdAt := e.stamp()
	if createdAt.Before(*req.AnsweredAt) {
		createdAt = *req.AnsweredAt
	}

	updated, err := e.requests.AttachAudio(ctx, req.ID, &domain.AudioArtifact{
		Data:       clip.Data,
		MIME:       clip.MIME,
		URL:        clip.URL,
		AnsweredAt: *req.AnsweredAt,
		CreatedAt:  createdAt,
	})
	if errors.Is(err, domain.ErrConflict) {
		// Another process stored audio first; adopt theirs.
		latest, getErr := e.requests.GetByID(ctx, req.ID)
		if getErr != nil {
			return nil, getErr
		}
		if latest.CachedAudio() == nil {
			return nil, err
		}
		log.Debug().Str("request_id", req.ID.String()).Msg("adopted concurrently stored audio")
		return latest, nil
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("request_id", req.ID.String()).
		Int("bytes", len(clip.Data)).
		Msg("speech attached")
	e.emitter.Emit(ctx, domain.ChangeAudio, updated)

	return updated, nil
}

// Archive moves a RESOLVED or UNRESOLVED request to ARCHIVED. PENDING
// requests are refused with ErrInvalidState; archiving twice is a no-op.
func (e *Engine) Archive(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	current, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Archive: %w", err)
	}

	switch current.Status {
	case domain.StatusArchived:
		return current, nil
	case domain.StatusPending:
		return nil, fmt.Errorf("resolution.Engine.Archive: %w: resolve or time out the request first", domain.ErrInvalidState)
	}

	archived, err := e.requests.Archive(ctx, id, e.stamp())
	if errors.Is(err, domain.ErrConflict) {
		latest, getErr := e.requests.GetByID(ctx, id)
		if getErr == nil && latest.Status == domain.StatusArchived {
			return latest, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolution.Engine.Archive: %w", err)
	}

	log.Info().Str("request_id", id.String()).Msg("help request archived")
	e.emitter.Emit(ctx, domain.ChangeArchived, archived)

	return archived, nil
}

func speechAdvisory(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return "speech unavailable: use local text-to-speech"
	default:
		return "speech synthesis failed: use local text-to-speech"
	}
}
