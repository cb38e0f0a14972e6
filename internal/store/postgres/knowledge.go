package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/frontdesk/internal/domain"
)

// KnowledgeRepo reads the learned-answer log. Writes happen inside
// HelpRequestRepo.Resolve so an entry never exists without its resolution.
type KnowledgeRepo struct {
	pool *pgxpool.Pool
}

func NewKnowledgeRepo(pool *pgxpool.Pool) *KnowledgeRepo {
	return &KnowledgeRepo{pool: pool}
}

func (r *KnowledgeRepo) ListRecent(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, request_id, question_text, answer_text, created_at, created_by
		 FROM knowledge_entries
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	var entries []*domain.KnowledgeEntry
	for rows.Next() {
		var e domain.KnowledgeEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.QuestionText, &e.AnswerText, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("knowledgeRepo.ListRecent: scan: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledgeRepo.ListRecent: rows: %w", err)
	}

	return entries, nil
}

func (r *KnowledgeRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry

	err := r.pool.QueryRow(ctx,
		`SELECT id, request_id, question_text, answer_text, created_at, created_by
		 FROM knowledge_entries WHERE request_id = $1`,
		requestID,
	).Scan(&e.ID, &e.RequestID, &e.QuestionText, &e.AnswerText, &e.CreatedAt, &e.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("knowledgeRepo.GetByRequestID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.GetByRequestID: %w", err)
	}

	return &e, nil
}
