package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is a learned question/answer pair, appended once per resolution.
type KnowledgeEntry struct {
	ID           uuid.UUID `json:"id"`
	RequestID    uuid.UUID `json:"request_id"`
	QuestionText string    `json:"question_text"`
	AnswerText   string    `json:"answer_text"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by"`
}

type KnowledgeRepository interface {
	// ListRecent returns entries newest first.
	ListRecent(ctx context.Context, limit int) ([]*KnowledgeEntry, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*KnowledgeEntry, error)
}
