package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/domain"
)

const helpRequestColumns = `id, caller_id, question_text, status, created_at,
	answer_text, answered_by, answered_at, unresolved_at, unresolved_reason, archived_at,
	audio_data, audio_mime, audio_url, audio_answered_at, audio_created_at`

type HelpRequestRepo struct {
	db *sql.DB
}

func (r *HelpRequestRepo) Create(ctx context.Context, req *domain.HelpRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO help_requests (id, caller_id, question_text, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.ID.String(), req.CallerID, req.QuestionText, string(req.Status), toNanos(req.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("helpRequestRepo.Create: %w", err)
	}

	return nil
}

func (r *HelpRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	req, err := scanHelpRequest(r.db.QueryRowContext(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests WHERE id = ?`, id.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.GetByID: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.HelpRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests
		 WHERE status = ?
		 ORDER BY created_at
		 LIMIT ?`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return scanHelpRequests(rows, "helpRequestRepo.ListByStatus")
}

func (r *HelpRequestRepo) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.HelpRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+helpRequestColumns+` FROM help_requests
		 WHERE status = ? AND created_at < ?
		 ORDER BY created_at
		 LIMIT ?`,
		string(domain.StatusPending), toNanos(cutoff), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.ListStalePending: %w", err)
	}
	defer rows.Close()

	return scanHelpRequests(rows, "helpRequestRepo.ListStalePending")
}

func (r *HelpRequestRepo) Resolve(ctx context.Context, id uuid.UUID, res domain.Resolution, entry *domain.KnowledgeEntry) (*domain.HelpRequest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	req, err := scanHelpRequest(tx.QueryRowContext(ctx,
		`UPDATE help_requests
		 SET status = ?, answer_text = ?, answered_by = ?, answered_at = ?
		 WHERE id = ? AND status = ?
		 RETURNING `+helpRequestColumns,
		string(domain.StatusResolved), res.AnswerText, res.AnsweredBy, toNanos(res.AnsweredAt),
		id.String(), string(domain.StatusPending),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: %w", err)
	}

	if entry != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO knowledge_entries (id, request_id, question_text, answer_text, created_at, created_by)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (request_id) DO NOTHING`,
			entry.ID.String(), id.String(), entry.QuestionText, entry.AnswerText, toNanos(entry.CreatedAt), entry.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("helpRequestRepo.Resolve: knowledge: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Resolve: commit: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) MarkUnresolved(ctx context.Context, ids []uuid.UUID, at time.Time, reason string) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := []any{string(domain.StatusUnresolved), toNanos(at), reason, string(domain.StatusPending)}
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id.String())
	}

	rows, err := r.db.QueryContext(ctx,
		`UPDATE help_requests
		 SET status = ?, unresolved_at = ?, unresolved_reason = ?
		 WHERE status = ? AND id IN (`+strings.Join(placeholders, ", ")+`)
		 RETURNING id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: %w", err)
	}
	defer rows.Close()

	var updated []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: scan: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: parse id: %w", err)
		}
		updated = append(updated, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("helpRequestRepo.MarkUnresolved: rows: %w", err)
	}

	return updated, nil
}

func (r *HelpRequestRepo) Archive(ctx context.Context, id uuid.UUID, at time.Time) (*domain.HelpRequest, error) {
	req, err := scanHelpRequest(r.db.QueryRowContext(ctx,
		`UPDATE help_requests SET status = ?, archived_at = ?
		 WHERE id = ? AND status IN (?, ?)
		 RETURNING `+helpRequestColumns,
		string(domain.StatusArchived), toNanos(at), id.String(),
		string(domain.StatusResolved), string(domain.StatusUnresolved),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.Archive: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.Archive: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) AttachAudio(ctx context.Context, id uuid.UUID, audio *domain.AudioArtifact) (*domain.HelpRequest, error) {
	answeredAt := toNanos(audio.AnsweredAt)

	req, err := scanHelpRequest(r.db.QueryRowContext(ctx,
		`UPDATE help_requests
		 SET audio_data = ?, audio_mime = ?, audio_url = ?, audio_answered_at = ?, audio_created_at = ?
		 WHERE id = ? AND answered_at = ? AND audio_answered_at IS NULL
		 RETURNING `+helpRequestColumns,
		audio.Data, audio.MIME, audio.URL, answeredAt, toNanos(audio.CreatedAt),
		id.String(), answeredAt,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("helpRequestRepo.AttachAudio: %w", domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("helpRequestRepo.AttachAudio: %w", err)
	}

	return req, nil
}

func (r *HelpRequestRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("helpRequestRepo.Ping: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHelpRequest(row rowScanner) (*domain.HelpRequest, error) {
	var (
		req             domain.HelpRequest
		id              string
		callerID        sql.NullString
		status          string
		createdAt       int64
		answeredAt      sql.NullInt64
		unresolvedAt    sql.NullInt64
		archivedAt      sql.NullInt64
		audioData       []byte
		audioMIME       string
		audioURL        string
		audioAnsweredAt sql.NullInt64
		audioCreatedAt  sql.NullInt64
	)

	err := row.Scan(
		&id, &callerID, &req.QuestionText, &status, &createdAt,
		&req.AnswerText, &req.AnsweredBy, &answeredAt, &unresolvedAt, &req.UnresolvedReason, &archivedAt,
		&audioData, &audioMIME, &audioURL, &audioAnsweredAt, &audioCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if callerID.Valid {
		req.CallerID = &callerID.String
	}
	req.Status = domain.Status(status)
	req.CreatedAt = fromNanos(createdAt)
	req.AnsweredAt = nullTime(answeredAt)
	req.UnresolvedAt = nullTime(unresolvedAt)
	req.ArchivedAt = nullTime(archivedAt)

	if audioAnsweredAt.Valid {
		req.Audio = &domain.AudioArtifact{
			Data:       audioData,
			MIME:       audioMIME,
			URL:        audioURL,
			AnsweredAt: fromNanos(audioAnsweredAt.Int64),
		}
		if audioCreatedAt.Valid {
			req.Audio.CreatedAt = fromNanos(audioCreatedAt.Int64)
		}
	}

	return &req, nil
}

func scanHelpRequests(rows *sql.Rows, caller string) ([]*domain.HelpRequest, error) {
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

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullTime(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
