package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/frontdesk/internal/domain"
)

const helpRequestColumns = `id, caller_id, question_text, status, created_at,
	answer_text, answered_by, answered_at, unresolved_at, unresolved_reason, archived_at,
	audio_data, audio_mime, audio_url, audio_answered_at, audio_created_at`

type HelpRequestRepo struct {
	pool *pgxpool.Pool
}

func NewHelpRequestRepo(pool *pgxpool.Pool) *HelpRequestRepo {
	return &HelpRequestRepo{pool: pool}
}

func (r *HelpRequestRepo) Create(ctx context.Context, req *domain.HelpRequest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO help_requests (id, caller_id, question_text, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.CallerID, req.QuestionText, req.Status, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("helpRequestRepo.Create: %w", err)
	}

	return nil
}

func (r *HelpRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	req, err := scanHelpRequest(r.pool.QueryRow(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.GetByID: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests
		 WHERE status = $1
		 ORDER BY created_at
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return scanHelpRequests(rows, "helpRequestRepo.ListByStatus")
}

func (r *HelpRequestRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.HelpRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at
		 LIMIT $3`,
		domain.StatusPending, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.ListStalePending: %w", err)
	}
	defer rows.Close()

	return scanHelpRequests(rows, "helpRequestRepo.ListStalePending")
}

func (r *HelpRequestRepo) Resolve(ctx context.Context, id uuid.UUID, res domain.Resolution, entry *domain.KnowledgeEntry) (*domain.HelpRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := scanHelpRequest(tx.QueryRow(ctx,
		`UPDATE help_requests
		 SET status = $1, answer_text = $2, answered_by = $3, answered_at = $4
		 WHERE id = $5 AND status = $6
		 RETURNING `+helpRequestColumns,
		domain.StatusResolved, res.AnswerText, res.AnsweredBy, res.AnsweredAt,
		id, domain.StatusPending,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: %w", err)
	}

	if entry != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO knowledge_entries (id, request_id, question_text, answer_text, created_at, created_by)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (request_id) DO NOTHING`,
			entry.ID, id, entry.QuestionText, entry.AnswerText, entry.CreatedAt, entry.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("helpRequestRepo.Resolve: knowledge: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: commit: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) MarkUnresolved(ctx context.Context, ids []uuid.UUID, at time.Time, reason string) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idStrs := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrs = append(idStrs, id.String())
	}

	rows, err := r.pool.Query(ctx,
		`UPDATE help_requests
		 SET status = $1, unresolved_at = $2, unresolved_reason = $3
		 WHERE id = ANY($4::uuid[]) AND status = $5
		 RETURNING id`,
		domain.StatusUnresolved, at, reason, idStrs, domain.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: %w", err)
	}
	defer rows.Close()

	var updated []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: scan: %w", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: rows: %w", err)
	}

	return updated, nil
}

func (r *HelpRequestRepo) Archive(ctx context.Context, id uuid.UUID, at time.Time) (*domain.HelpRequest, error) {
	req, err := scanHelpRequest(r.pool.QueryRow(ctx,
		`UPDATE help_requests SET status = $1, archived_at = $2
		 WHERE id = $3 AND status IN ($4, $5)
		 RETURNING `+helpRequestColumns,
		domain.StatusArchived, at, id, domain.StatusResolved, domain.StatusUnresolved,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.Archive: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Archive: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) AttachAudio(ctx context.Context, id uuid.UUID, audio *domain.AudioArtifact) (*domain.HelpRequest, error) {
	req, err := scanHelpRequest(r.pool.QueryRow(ctx,
		`UPDATE help_requests
		 SET audio_data = $1, audio_mime = $2, audio_url = $3, audio_answered_at = $4, audio_created_at = $5
		 WHERE id = $6 AND answered_at = $4 AND audio_answered_at IS NULL
		 RETURNING `+helpRequestColumns,
		audio.Data, audio.MIME, audio.URL, audio.AnsweredAt, audio.CreatedAt, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.AttachAudio: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.AttachAudio: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("helpRequestRepo.Ping: %w", err)
	}
	return nil
}

func scanHelpRequest(row pgx.Row) (*domain.HelpRequest, error) {
	var (
		req             domain.HelpRequest
		audioData       []byte
		audioMIME       string
		audioURL        string
		audioAnsweredAt *time.Time
		audioCreatedAt  *time.Time
	)

	err := row.Scan(
		&req.ID, &req.CallerID, &req.QuestionText, &req.Status, &req.CreatedAt,
		&req.AnswerText, &req.AnsweredBy, &req.AnsweredAt, &req.UnresolvedAt, &req.UnresolvedReason, &req.ArchivedAt,
		&audioData, &audioMIME, &audioURL, &audioAnsweredAt, &audioCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if audioAnsweredAt != nil {
		req.Audio = &domain.AudioArtifact{
			Data:       audioData,
			MIME:       audioMIME,
			URL:        audioURL,
			AnsweredAt: *audioAnsweredAt,
		}
		if audioCreatedAt != nil {
			req.Audio.CreatedAt = *audioCreatedAt
		}
	}

	return &req, nil
}

func scanHelpRequests(rows pgx.Rows, caller string) ([]*domain.HelpRequest, error) {
	var requests []*domain.HelpRequest
	for rows.Next() {
		req, err := scanHelpRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return requests, nil
}
