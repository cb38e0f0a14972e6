package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusResolved   Status = "RESOLVED"
	StatusUnresolved Status = "UNRESOLVED"
	StatusArchived   Status = "ARCHIVED"
)

// CanTransition reports whether the lifecycle allows moving from s to to.
// Allowed: PENDING->RESOLVED, PENDING->UNRESOLVED, RESOLVED->ARCHIVED, UNRESOLVED->ARCHIVED.
// Nothing re-enters PENDING and ARCHIVED is terminal.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusResolved || to == StatusUnresolved
	case StatusResolved, StatusUnresolved:
		return to == StatusArchived
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusUnresolved, StatusArchived:
		return true
	default:
		return false
	}
}

// DefaultAnsweredBy is recorded when a supervisor does not identify themselves.
const DefaultAnsweredBy = "supervisor"

// AudioArtifact is synthesized speech for one answer. Either Data+MIME or URL is set.
type AudioArtifact struct {
	Data       []byte    `json:"data,omitempty"`
	MIME       string    `json:"mime,omitempty"`
	URL        string    `json:"url,omitempty"`
	AnsweredAt time.Time `json:"answered_at"` // the answer this audio speaks
	CreatedAt  time.Time `json:"created_at"`
}

// Matches reports whether the artifact was produced for the answer stamped at answeredAt.
func (a *AudioArtifact) Matches(answeredAt *time.Time) bool {
	if a == nil || answeredAt == nil {
		return false
	}
	return a.AnsweredAt.Equal(*answeredAt)
}

type HelpRequest struct {
	ID               uuid.UUID      `json:"id"`
	CallerID         *string        `json:"caller_id"`
	QuestionText     string         `json:"question_text"`
	Status           Status         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	AnswerText       string         `json:"answer_text,omitempty"`
	AnsweredBy       string         `json:"answered_by,omitempty"`
	AnsweredAt       *time.Time     `json:"answered_at,omitempty"`
	UnresolvedAt     *time.Time     `json:"unresolved_at,omitempty"`
	UnresolvedReason string         `json:"unresolved_reason,omitempty"`
	ArchivedAt       *time.Time     `json:"archived_at,omitempty"`
	Audio            *AudioArtifact `json:"audio,omitempty"`
}

// CachedAudio returns the stored artifact if it belongs to the current answer.
func (r *HelpRequest) CachedAudio() *AudioArtifact {
	if r.Audio.Matches(r.AnsweredAt) {
		return r.Audio
	}
	return nil
}

// DedupeKey identifies one answer to one request. Clients use it to play an
// answer at most once.
func DedupeKey(id uuid.UUID, answeredAt *time.Time) string {
	if answeredAt == nil {
		return id.String() + "::"
	}
	return fmt.Sprintf("%s::%s", id, answeredAt.UTC().Format(time.RFC3339Nano))
}

// Resolution carries the fields stamped by the PENDING->RESOLVED transition.
type Resolution struct {
	AnswerText string
	AnsweredBy string
	AnsweredAt time.Time
}

type HelpRequestRepository interface {
	Create(ctx context.Context, r *HelpRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*HelpRequest, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*HelpRequest, error)
	// ListStalePending returns PENDING requests created before cutoff, oldest first.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*HelpRequest, error)

	// Resolve applies PENDING->RESOLVED and appends the knowledge entry in one
	// transaction. Returns ErrConflict when the request is no longer PENDING.
	Resolve(ctx context.Context, id uuid.UUID, res Resolution, entry *KnowledgeEntry) (*HelpRequest, error)
	// MarkUnresolved applies PENDING->UNRESOLVED to every id still PENDING and
	// returns the ids that actually transitioned.
	MarkUnresolved(ctx context.Context, ids []uuid.UUID, at time.Time, reason string) ([]uuid.UUID, error)
	// Archive applies {RESOLVED,UNRESOLVED}->ARCHIVED. Returns ErrConflict otherwise.
	Archive(ctx context.Context, id uuid.UUID, at time.Time) (*HelpRequest, error)
	// AttachAudio stores the artifact only if the audio slot is empty and the
	// answer it was produced for is still the current one. Returns ErrConflict otherwise.
	AttachAudio(ctx context.Context, id uuid.UUID, audio *AudioArtifact) (*HelpRequest, error)

	Ping(ctx context.Context) error
}
