package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	s, err := New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestClaimRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	won, err := s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	assert.True(t, won)

	// Second claim for the same source loses.
	won, err = s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	assert.False(t, won)

	// A different source is unaffected.
	won, err = s.ClaimRun(ctx, "page-def")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestReleaseRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	won, err := s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, s.ReleaseRun(ctx, "page-abc"))

	won, err = s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	assert.True(t, won, "released source should be claimable again")
}

func TestReleaseRun_DoesNotTouchFinishedRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, "page-abc", "single-pass", 3))

	require.NoError(t, s.ReleaseRun(ctx, "page-abc"))

	won, err := s.ClaimRun(ctx, "page-abc")
	require.NoError(t, err)
	assert.False(t, won, "completed run must stay claimed")
}

func TestCompleteAndFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimRun(ctx, "done-page")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, "done-page", "multi-pass", 4))

	run, err := s.GetRun(ctx, "done-page")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, "multi-pass", run.Mode)
	assert.Equal(t, int64(4), run.ConceptCount)
	assert.True(t, run.FinishedAt.Valid)

	_, err = s.ClaimRun(ctx, "bad-page")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, "bad-page", "single-pass", "upstream exploded"))

	run, err = s.GetRun(ctx, "bad-page")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "upstream exploded", run.ErrorMessage.String)
}

func TestClaimRun_FailedRunIsReclaimable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimRun(ctx, "flaky-page")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, "flaky-page", "single-pass", "quota"))

	won, err := s.ClaimRun(ctx, "flaky-page")
	require.NoError(t, err)
	assert.True(t, won, "a failed run should be retryable on redelivery")

	run, err := s.GetRun(ctx, "flaky-page")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.False(t, run.ErrorMessage.Valid)
}

func TestClaimRun_CompletedRunStaysClaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ClaimRun(ctx, "done-page")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, "done-page", "single-pass", 2))

	won, err := s.ClaimRun(ctx, "done-page")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.ClaimRun(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, s.CompleteRun(ctx, "a", "single-pass", 3))
	require.NoError(t, s.CompleteRun(ctx, "b", "multi-pass", 5))
	require.NoError(t, s.FailRun(ctx, "c", "single-pass", "boom"))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(2), st.Completed)
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, int64(0), st.Running)
	assert.Equal(t, int64(8), st.Concepts)
}

func TestRecentRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.ClaimRun(ctx, id)
		require.NoError(t, err)
	}

	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
