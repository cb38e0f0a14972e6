// Package escalation marks PENDING help requests that waited too long as
// UNRESOLVED.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/frontdesk/internal/domain"
)

// DefaultBatchSize caps how many requests a single sweep transitions.
const DefaultBatchSize = 500

type Emitter interface {
	Emit(ctx context.Context, typ domain.ChangeType, req *domain.HelpRequest)
}

// Notifier tells supervisors about requests that just timed out.
type Notifier interface {
	NotifyUnresolved(ctx context.Context, reqs []*domain.HelpRequest) error
}

type Outcome int

const (
	OutcomeNoCandidates Outcome = iota
	OutcomeDryRun
	OutcomeApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeDryRun:
		return "dry_run"
	case OutcomeApplied:
		return "applied"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Result struct {
	Threshold  time.Duration
	Cutoff     time.Time
	DryRun     bool
	Reason     string
	Candidates []*domain.HelpRequest
	// Updated holds the ids that actually moved to UNRESOLVED. Candidates
	// resolved concurrently are absent.
	Updated []uuid.UUID
}

func (r *Result) Outcome() Outcome {
	switch {
	case len(r.Candidates) == 0:
		return OutcomeNoCandidates
	case r.DryRun:
		return OutcomeDryRun
	default:
		return OutcomeApplied
	}
}

type Sweeper struct {
	requests  domain.HelpRequestRepository
	emitter   Emitter
	notifier  Notifier
	batchSize int
	now       func() time.Time
}

type Option func(*Sweeper)

func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Sweeper) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func NewSweeper(requests domain.HelpRequestRepository, emitter Emitter, opts ...Option) *Sweeper {
	s := &Sweeper{
		requests:  requests,
		emitter:   emitter,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FormatTimeoutReason renders the unresolved_reason stamped by a sweep.
func FormatTimeoutReason(threshold time.Duration) string {
	if threshold > 0 && threshold%time.Minute == 0 {
		return fmt.Sprintf("timeout:%dm", int64(threshold/time.Minute))
	}
	return "timeout:" + threshold.String()
}

// Sweep transitions PENDING requests created before now-threshold to
// UNRESOLVED, oldest first, at most one batch per call. A dry run only
// reports candidates. Requests resolved between the read and the write are
// dropped from the batch, never overwritten.
func (s *Sweeper) Sweep(ctx context.Context, threshold time.Duration, dryRun bool) (*Result, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("escalation.Sweeper.Sweep: %w: threshold must be positive", domain.ErrInvalidArgument)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	res := &Result{
		Threshold: threshold,
		Cutoff:    now.Add(-threshold),
		DryRun:    dryRun,
		Reason:    FormatTimeoutReason(threshold),
	}

	candidates, err := s.requests.ListStalePending(ctx, res.Cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("escalation.Sweeper.Sweep: list candidates: %w", err)
	}
	res.Candidates = candidates

	for _, c := range candidates {
		log.Info().
			Str("request_id", c.ID.String()).
			Time("created_at", c.CreatedAt).
			Bool("dry_run", dryRun).
			Msg("stale pending request")
	}

	if len(candidates) == 0 || dryRun {
		return res, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	updated, err := s.requests.MarkUnresolved(ctx, ids, now, res.Reason)
	if err != nil {
		return nil, fmt.Errorf("escalation.Sweeper.Sweep: mark unresolved: %w", err)
	}
	res.Updated = updated

	moved := make(map[uuid.UUID]bool, len(updated))
	for _, id := range updated {
		moved[id] = true
	}

	var escalated []*domain.HelpRequest
	for _, c := range candidates {
		if !moved[c.ID] {
			log.Debug().Str("request_id", c.ID.String()).Msg("candidate left pending before sweep write")
			continue
		}
		rec := *c
		rec.Status = domain.StatusUnresolved
		rec.UnresolvedAt = &now
		rec.UnresolvedReason = res.Reason
		escalated = append(escalated, &rec)

		if s.emitter != nil {
			s.emitter.Emit(ctx, domain.ChangeUnresolved, &rec)
		}
	}

	log.Info().
		Str("threshold", threshold.String()).
		Int("candidates", len(candidates)).
		Int("count", len(updated)).
		Msg("sweep applied")

	if s.notifier != nil && len(escalated) > 0 {
		if err := s.notifier.NotifyUnresolved(ctx, escalated); err != nil {
			log.Warn().Err(err).Int("count", len(escalated)).Msg("escalation notice failed")
		}
	}

	return res, nil
}
