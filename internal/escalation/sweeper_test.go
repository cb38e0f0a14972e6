package escalation_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/escalation"
	"github.com/gosuda/frontdesk/internal/resolution"
	"github.com/gosuda/frontdesk/internal/store/sqlite"
)

// --- mocks ---

type recordingEmitter struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingEmitter) Emit(_ context.Context, typ domain.ChangeType, req *domain.HelpRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if typ == domain.ChangeUnresolved {
		r.ids = append(r.ids, req.ID)
	}
}

type recordingNotifier struct {
	batches [][]*domain.HelpRequest
	err     error
}

func (n *recordingNotifier) NotifyUnresolved(_ context.Context, reqs []*domain.HelpRequest) error {
	n.batches = append(n.batches, reqs)
	return n.err
}

type mockSlackAPI struct {
	channel string
	opts    []slacklib.MsgOption
	err     error
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slacklib.MsgOption) (ch, ts string, err error) {
	m.channel = channelID
	m.opts = options
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "1700000000.000100", nil
}

func newStore(t testing.TB) *sqlite.Store {
	t.Helper()

	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedAged(t testing.TB, repo domain.HelpRequestRepository, now time.Time, age time.Duration) *domain.HelpRequest {
	t.Helper()

	req := &domain.HelpRequest{
		ID:           uuid.New(),
		QuestionText: "q",
		Status:       domain.StatusPending,
		CreatedAt:    now.Add(-age),
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return req
}

func TestFormatTimeoutReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		threshold time.Duration
		want      string
	}{
		{threshold: 30 * time.Minute, want: "timeout:30m"},
		{threshold: time.Minute, want: "timeout:1m"},
		{threshold: 2 * time.Hour, want: "timeout:120m"},
		{threshold: 90 * time.Second, want: "timeout:1m30s"},
		{threshold: 500 * time.Millisecond, want: "timeout:500ms"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, escalation.FormatTimeoutReason(tt.threshold))
		})
	}
}

func TestResult_Outcome(t *testing.T) {
	t.Parallel()

	one := []*domain.HelpRequest{{ID: uuid.New()}}

	assert.Equal(t, escalation.OutcomeNoCandidates, (&escalation.Result{}).Outcome())
	assert.Equal(t, escalation.OutcomeNoCandidates, (&escalation.Result{DryRun: true}).Outcome())
	assert.Equal(t, escalation.OutcomeDryRun, (&escalation.Result{DryRun: true, Candidates: one}).Outcome())
	assert.Equal(t, escalation.OutcomeApplied, (&escalation.Result{Candidates: one}).Outcome())
	assert.Equal(t, "applied", escalation.OutcomeApplied.String())
}

func TestSweeper_Sweep(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := store.HelpRequests()

	stale := seedAged(t, repo, now, 45*time.Minute)
	fresh := seedAged(t, repo, now, 5*time.Minute)
	answered := seedAged(t, repo, now, 60*time.Minute)
	_, err := repo.Resolve(ctx, answered.ID, domain.Resolution{AnswerText: "a", AnsweredBy: "s", AnsweredAt: now}, nil)
	require.NoError(t, err)

	emitter := &recordingEmitter{}
	notifier := &recordingNotifier{}
	sweeper := escalation.NewSweeper(repo, emitter,
		escalation.WithClock(func() time.Time { return now }),
		escalation.WithNotifier(notifier),
	)

	t.Run("dry run reports without writing", func(t *testing.T) {
		res, err := sweeper.Sweep(ctx, 30*time.Minute, true)
		require.NoError(t, err)
		assert.Equal(t, escalation.OutcomeDryRun, res.Outcome())
		require.Len(t, res.Candidates, 1)
		assert.Equal(t, stale.ID, res.Candidates[0].ID)
		assert.Empty(t, res.Updated)

		got, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Empty(t, notifier.batches)
	})

	t.Run("apply", func(t *testing.T) {
		res, err := sweeper.Sweep(ctx, 30*time.Minute, false)
		require.NoError(t, err)
		assert.Equal(t, escalation.OutcomeApplied, res.Outcome())
		assert.Equal(t, []uuid.UUID{stale.ID}, res.Updated)
		assert.Equal(t, "timeout:30m", res.Reason)
		assert.True(t, now.Add(-30*time.Minute).Equal(res.Cutoff))

		got, err := repo.GetByID(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUnresolved, got.Status)
		assert.Equal(t, "timeout:30m", got.UnresolvedReason)
		require.NotNil(t, got.UnresolvedAt)
		assert.True(t, now.Equal(*got.UnresolvedAt))
		assert.Nil(t, got.AnsweredAt)

		got, err = repo.GetByID(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)

		got, err = repo.GetByID(ctx, answered.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusResolved, got.Status)

		assert.Equal(t, []uuid.UUID{stale.ID}, emitter.ids)
		require.Len(t, notifier.batches, 1)
		assert.Equal(t, domain.StatusUnresolved, notifier.batches[0][0].Status)
	})

	t.Run("second run finds nothing", func(t *testing.T) {
		res, err := sweeper.Sweep(ctx, 30*time.Minute, false)
		require.NoError(t, err)
		assert.Equal(t, escalation.OutcomeNoCandidates, res.Outcome())
	})

	t.Run("invalid threshold", func(t *testing.T) {
		_, err := sweeper.Sweep(ctx, 0, false)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestSweeper_BatchSize(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	now := time.Now().UTC()
	for i := range 5 {
		seedAged(t, store.HelpRequests(), now, time.Duration(10+i)*time.Minute)
	}

	sweeper := escalation.NewSweeper(store.HelpRequests(), nil,
		escalation.WithClock(func() time.Time { return now }),
		escalation.WithBatchSize(2),
	)

	res, err := sweeper.Sweep(context.Background(), time.Minute, false)
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)

	pending, err := store.HelpRequests().ListByStatus(context.Background(), domain.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestSweeper_NotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	now := time.Now().UTC()
	seedAged(t, store.HelpRequests(), now, time.Hour)

	sweeper := escalation.NewSweeper(store.HelpRequests(), nil,
		escalation.WithNotifier(&recordingNotifier{err: errors.New("slack down")}),
	)

	res, err := sweeper.Sweep(context.Background(), time.Minute, false)
	require.NoError(t, err)
	assert.Len(t, res.Updated, 1)
}

func TestSweeper_DryRunNeverMutates(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	repo := store.HelpRequests()
	now := time.Now().UTC()
	sweeper := escalation.NewSweeper(repo, nil, escalation.WithClock(func() time.Time { return now }))

	rapid.Check(t, func(rt *rapid.T) {
		ages := rapid.SliceOfN(rapid.IntRange(0, 180), 0, 8).Draw(rt, "ages")
		threshold := time.Duration(rapid.IntRange(1, 120).Draw(rt, "threshold")) * time.Minute

		ids := make([]uuid.UUID, 0, len(ages))
		for _, age := range ages {
			ids = append(ids, seedAged(t, repo, now, time.Duration(age)*time.Minute).ID)
		}

		_, err := sweeper.Sweep(context.Background(), threshold, true)
		if err != nil {
			rt.Fatalf("dry run: %v", err)
		}

		for _, id := range ids {
			got, err := repo.GetByID(context.Background(), id)
			if err != nil {
				rt.Fatalf("get: %v", err)
			}
			if got.Status != domain.StatusPending || got.UnresolvedAt != nil {
				rt.Fatalf("dry run mutated %s: status=%s", id, got.Status)
			}
		}
	})
}

// Resolve and sweep race on the same aged record; exactly one wins.
func TestSweeper_RacesResolve(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	engine := resolution.New(store.HelpRequests(), store.Knowledge(), nil, nil)
	sweeper := escalation.NewSweeper(store.HelpRequests(), nil)

	for i := range 25 {
		req := seedAged(t, store.HelpRequests(), time.Now().UTC(), 2*time.Hour)

		var (
			wg         sync.WaitGroup
			resolveErr error
			sweepRes   *escalation.Result
			sweepErr   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, resolveErr = engine.Resolve(ctx, req.ID, "answer", "alice")
		}()
		go func() {
			defer wg.Done()
			sweepRes, sweepErr = sweeper.Sweep(ctx, time.Hour, false)
		}()
		wg.Wait()
		require.NoError(t, sweepErr, "iteration %d", i)

		got, err := store.HelpRequests().GetByID(ctx, req.ID)
		require.NoError(t, err)

		answered := got.AnsweredAt != nil
		unresolved := got.UnresolvedAt != nil
		assert.True(t, answered != unresolved, "iteration %d: exactly one stamp must be set", i)

		switch got.Status {
		case domain.StatusResolved:
			require.NoError(t, resolveErr)
			assert.NotContains(t, sweepRes.Updated, req.ID)
		case domain.StatusUnresolved:
			require.Error(t, resolveErr)
			assert.True(t, errors.Is(resolveErr, domain.ErrConflict) || errors.Is(resolveErr, domain.ErrInvalidState))
			assert.Contains(t, sweepRes.Updated, req.ID)
		default:
			t.Fatalf("iteration %d: unexpected status %s", i, got.Status)
		}
	}
}

func TestSlackNotifier(t *testing.T) {
	t.Parallel()

	caller := "+15550001111"
	reqs := []*domain.HelpRequest{{
		ID:               uuid.New(),
		CallerID:         &caller,
		QuestionText:     "Is the pool heated?",
		Status:           domain.StatusUnresolved,
		CreatedAt:        time.Now().Add(-time.Hour),
		UnresolvedReason: "timeout:30m",
	}}

	t.Run("posts to channel", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		err := escalation.NewSlackNotifier(api, "C-SUPERVISORS").NotifyUnresolved(context.Background(), reqs)
		require.NoError(t, err)
		assert.Equal(t, "C-SUPERVISORS", api.channel)
		assert.Len(t, api.opts, 2)
	})

	t.Run("empty batch posts nothing", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		require.NoError(t, escalation.NewSlackNotifier(api, "C").NotifyUnresolved(context.Background(), nil))
		assert.Empty(t, api.channel)
	})

	t.Run("api error wrapped", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{err: errors.New("channel_not_found")}
		err := escalation.NewSlackNotifier(api, "C").NotifyUnresolved(context.Background(), reqs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel_not_found")
	})
}

func TestBuildUnresolvedBlocks(t *testing.T) {
	t.Parallel()

	reqs := make([]*domain.HelpRequest, 12)
	for i := range reqs {
		reqs[i] = &domain.HelpRequest{ID: uuid.New(), QuestionText: "q", CreatedAt: time.Now()}
	}

	blocks := escalation.BuildUnresolvedBlocks(reqs)
	// header + 10 listed + "and more"
	require.Len(t, blocks, 12)
	assert.Equal(t, slacklib.MBTSection, blocks[0].BlockType())
	assert.Equal(t, slacklib.MBTContext, blocks[11].BlockType())

	blocks = escalation.BuildUnresolvedBlocks(reqs[:1])
	assert.Len(t, blocks, 2)
}

func TestNewScheduler(t *testing.T) {
	t.Parallel()

	sweeper := escalation.NewSweeper(newStore(t).HelpRequests(), nil)

	tests := []struct {
		name      string
		schedule  string
		threshold time.Duration
		wantErr   bool
	}{
		{name: "five field", schedule: "*/5 * * * *", threshold: 30 * time.Minute},
		{name: "with seconds", schedule: "0 */5 * * * *", threshold: 30 * time.Minute},
		{name: "descriptor", schedule: "@every 1m", threshold: time.Minute},
		{name: "garbage", schedule: "whenever", threshold: time.Minute, wantErr: true},
		{name: "zero threshold", schedule: "@every 1m", threshold: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := escalation.NewScheduler(sweeper, tt.schedule, tt.threshold)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	seedAged(t, store.HelpRequests(), time.Now().UTC(), time.Hour)
	sweeper := escalation.NewSweeper(store.HelpRequests(), nil)

	sched, err := escalation.NewScheduler(sweeper, "@every 1s", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		pending, err := store.HelpRequests().ListByStatus(context.Background(), domain.StatusPending, 10)
		return err == nil && len(pending) == 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
