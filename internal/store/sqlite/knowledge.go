package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/domain"
)

type KnowledgeRepo struct {
	db *sql.DB
}

func (r *KnowledgeRepo) ListRecent(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, question_text, answer_text, created_at, created_by
		 FROM knowledge_entries
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	var entries []*domain.KnowledgeEntry
	for rows.Next() {
		e, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("knowledgeRepo.ListRecent: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledgeRepo.ListRecent: rows: %w", err)
	}

	return entries, nil
}

func (r *KnowledgeRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*domain.KnowledgeEntry, error) {
	e, err := scanKnowledgeEntry(r.db.QueryRowContext(ctx,
		`SELECT id, request_id, question_text, answer_text, created_at, created_by
		 FROM knowledge_entries WHERE request_id = ?`,
		requestID.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledgeRepo.GetByRequestID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledgeRepo.GetByRequestID: %w", err)
	}

	return e, nil
}

func scanKnowledgeEntry(row rowScanner) (*domain.KnowledgeEntry, error) {
	var (
		e         domain.KnowledgeEntry
		id        string
		requestID string
		createdAt int64
	)
	if err := row.Scan(&id, &requestID, &e.QuestionText, &e.AnswerText, &createdAt, &e.CreatedBy); err != nil {
		return nil, err
	}

	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if e.RequestID, err = uuid.Parse(requestID); err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	e.CreatedAt = fromNanos(createdAt)

	return &e, nil
}
