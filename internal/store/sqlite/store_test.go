package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "frontdesk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, repo domain.HelpRequestRepository, question string, createdAt time.Time) *domain.HelpRequest {
	t.Helper()

	req := &domain.HelpRequest{
		ID:           uuid.New(),
		QuestionText: question,
		Status:       domain.StatusPending,
		CreatedAt:    createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "frontdesk.db")
	ctx := context.Background()

	s1, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	seed(t, s1.HelpRequests(), "still here?", time.Now())
	require.NoError(t, s1.Close())

	s2, err := sqlite.New(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	pending, err := s2.HelpRequests().ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestHelpRequestRepo_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	caller := "+15550001111"
	created := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

	req := &domain.HelpRequest{
		ID:           uuid.New(),
		CallerID:     &caller,
		QuestionText: "Do you take walk-ins?",
		Status:       domain.StatusPending,
		CreatedAt:    created,
	}
	require.NoError(t, s.HelpRequests().Create(ctx, req))

	got, err := s.HelpRequests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	require.NotNil(t, got.CallerID)
	assert.Equal(t, caller, *got.CallerID)
	assert.Equal(t, "Do you take walk-ins?", got.QuestionText)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.AnsweredAt)
	assert.Nil(t, got.Audio)

	_, err = s.HelpRequests().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHelpRequestRepo_ListByStatusOrdersOldestFirst(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	second := seed(t, s.HelpRequests(), "second", base.Add(-1*time.Minute))
	first := seed(t, s.HelpRequests(), "first", base.Add(-2*time.Minute))

	list, err := s.HelpRequests().ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	list, err = s.HelpRequests().ListByStatus(ctx, domain.StatusPending, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestHelpRequestRepo_Resolve(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	req := seed(t, s.HelpRequests(), "What are your hours?", time.Now())
	answeredAt := time.Now().UTC()

	entry := &domain.KnowledgeEntry{
		ID:           uuid.New(),
		RequestID:    req.ID,
		QuestionText: req.QuestionText,
		AnswerText:   "9 to 5",
		CreatedAt:    answeredAt,
		CreatedBy:    "alice",
	}
	got, err := s.HelpRequests().Resolve(ctx, req.ID, domain.Resolution{
		AnswerText: "9 to 5",
		AnsweredBy: "alice",
		AnsweredAt: answeredAt,
	}, entry)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)
	assert.Equal(t, "9 to 5", got.AnswerText)
	assert.Equal(t, "alice", got.AnsweredBy)
	require.NotNil(t, got.AnsweredAt)
	assert.True(t, answeredAt.Equal(*got.AnsweredAt))

	k, err := s.Knowledge().GetByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "What are your hours?", k.QuestionText)
	assert.Equal(t, "9 to 5", k.AnswerText)
	assert.Equal(t, "alice", k.CreatedBy)

	t.Run("second resolve conflicts and leaves knowledge untouched", func(t *testing.T) {
		_, err := s.HelpRequests().Resolve(ctx, req.ID, domain.Resolution{
			AnswerText: "10 to 6",
			AnsweredBy: "bob",
			AnsweredAt: time.Now(),
		}, &domain.KnowledgeEntry{ID: uuid.New(), RequestID: req.ID, QuestionText: "x", AnswerText: "10 to 6", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, domain.ErrConflict)

		entries, err := s.Knowledge().ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "9 to 5", entries[0].AnswerText)
	})
}

func TestHelpRequestRepo_MarkUnresolved(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := seed(t, s.HelpRequests(), "stale", now.Add(-10*time.Minute))
	resolved := seed(t, s.HelpRequests(), "resolved", now.Add(-10*time.Minute))
	fresh := seed(t, s.HelpRequests(), "fresh", now)

	_, err := s.HelpRequests().Resolve(ctx, resolved.ID, domain.Resolution{AnswerText: "a", AnsweredBy: "s", AnsweredAt: now}, nil)
	require.NoError(t, err)

	candidates, err := s.HelpRequests().ListStalePending(ctx, now.Add(-5*time.Minute), 500)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, stale.ID, candidates[0].ID)

	updated, err := s.HelpRequests().MarkUnresolved(ctx, []uuid.UUID{stale.ID, resolved.ID}, now, "timeout:5m")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stale.ID}, updated)

	got, err := s.HelpRequests().GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnresolved, got.Status)
	assert.Equal(t, "timeout:5m", got.UnresolvedReason)
	require.NotNil(t, got.UnresolvedAt)

	got, err = s.HelpRequests().GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	updated, err = s.HelpRequests().MarkUnresolved(ctx, nil, now, "timeout:5m")
	require.NoError(t, err)
	assert.Empty(t, updated)
}

func TestHelpRequestRepo_Archive(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	req := seed(t, s.HelpRequests(), "q", time.Now())

	_, err := s.HelpRequests().Archive(ctx, req.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrConflict, "pending requests cannot be archived")

	_, err = s.HelpRequests().Resolve(ctx, req.ID, domain.Resolution{AnswerText: "a", AnsweredBy: "s", AnsweredAt: time.Now()}, nil)
	require.NoError(t, err)

	got, err := s.HelpRequests().Archive(ctx, req.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)
	assert.NotNil(t, got.ArchivedAt)
	assert.Equal(t, "a", got.AnswerText)

	_, err = s.HelpRequests().Archive(ctx, req.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestHelpRequestRepo_AttachAudioIsWriteOnce(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()
	req := seed(t, s.HelpRequests(), "q", time.Now())
	answeredAt := time.Now().UTC()

	resolved, err := s.HelpRequests().Resolve(ctx, req.ID, domain.Resolution{AnswerText: "a", AnsweredBy: "s", AnsweredAt: answeredAt}, nil)
	require.NoError(t, err)

	t.Run("stale answer rejected", func(t *testing.T) {
		_, err := s.HelpRequests().AttachAudio(ctx, req.ID, &domain.AudioArtifact{
			Data: []byte("old"), MIME: "audio/mpeg", AnsweredAt: answeredAt.Add(-time.Second), CreatedAt: time.Now(),
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	got, err := s.HelpRequests().AttachAudio(ctx, req.ID, &domain.AudioArtifact{
		Data: []byte("mp3"), MIME: "audio/mpeg", AnsweredAt: *resolved.AnsweredAt, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, got.CachedAudio())
	assert.Equal(t, []byte("mp3"), got.CachedAudio().Data)

	_, err = s.HelpRequests().AttachAudio(ctx, req.ID, &domain.AudioArtifact{
		Data: []byte("second"), MIME: "audio/mpeg", AnsweredAt: *resolved.AnsweredAt, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err = s.HelpRequests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), got.Audio.Data)
}

func TestHelpRequestRepo_ResolveRacesSweep(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	ctx := context.Background()

	for i := range 20 {
		req := seed(t, s.HelpRequests(), "race", time.Now().Add(-time.Hour))

		var (
			wg         sync.WaitGroup
			resolveErr error
			swept      []uuid.UUID
			sweepErr   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, resolveErr = s.HelpRequests().Resolve(ctx, req.ID, domain.Resolution{
				AnswerText: "a", AnsweredBy: "s", AnsweredAt: time.Now(),
			}, &domain.KnowledgeEntry{ID: uuid.New(), RequestID: req.ID, QuestionText: "race", AnswerText: "a", CreatedAt: time.Now()})
		}()
		go func() {
			defer wg.Done()
			swept, sweepErr = s.HelpRequests().MarkUnresolved(ctx, []uuid.UUID{req.ID}, time.Now(), "timeout:1m")
		}()
		wg.Wait()
		require.NoError(t, sweepErr, "iteration %d", i)

		got, err := s.HelpRequests().GetByID(ctx, req.ID)
		require.NoError(t, err)

		switch got.Status {
		case domain.StatusResolved:
			require.NoError(t, resolveErr)
			assert.Empty(t, swept)
			assert.Nil(t, got.UnresolvedAt)
		case domain.StatusUnresolved:
			assert.ErrorIs(t, resolveErr, domain.ErrConflict)
			assert.Equal(t, []uuid.UUID{req.ID}, swept)
			assert.Nil(t, got.AnsweredAt)
			_, err := s.Knowledge().GetByRequestID(ctx, req.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		default:
			t.Fatalf("unexpected status %s", got.Status)
		}
	}
}
