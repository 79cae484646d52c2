package stats

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recompute derives a Snapshot from scratch over a score set, the O(n)
// way the incremental store avoids.
func recompute(scores []float64) Snapshot {
	var s Snapshot
	for _, v := range scores {
		s.Count++
		s.Sum += v
		s.SumSq += v * v
	}
	return s
}

func TestApplyDeltaMatchesRecompute(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Register five contributors at their baseline score.
	scores := []float64{15, 15, 15, 15, 15}
	for _, v := range scores {
		require.NoError(t, m.ApplyDelta(ctx, 0, v, true))
	}

	// Walk each account through a few score changes.
	changes := []struct {
		idx int
		to  float64
	}{
		{0, 17.5}, {1, 22}, {0, 19.25}, {3, 8.5}, {4, 100}, {1, 23.75}, {2, 15.5},
	}
	for _, ch := range changes {
		require.NoError(t, m.ApplyDelta(ctx, scores[ch.idx], ch.to, false))
		scores[ch.idx] = ch.to
	}

	got, err := m.Read(ctx)
	require.NoError(t, err)
	want := recompute(scores)

	require.Equal(t, want.Count, got.Count)
	require.InDelta(t, want.Mean(), got.Mean(), 1e-9)
	require.InDelta(t, want.StdDev(), got.StdDev(), 1e-9)
}

func TestSnapshotDerivations(t *testing.T) {
	var empty Snapshot
	require.Zero(t, empty.Mean())
	require.Zero(t, empty.StdDev())

	s := Snapshot{Count: 2, Sum: 30, SumSq: 500}
	require.InDelta(t, 15.0, s.Mean(), 1e-12)
	// variance = 500/2 - 225 = 25
	require.InDelta(t, 5.0, s.StdDev(), 1e-12)
}

func TestVarianceNeverNegative(t *testing.T) {
	// Tiny floating-point drift in sumSq must not produce NaN stddev.
	s := Snapshot{Count: 3, Sum: 30, SumSq: 299.9999999999999}
	require.False(t, math.IsNaN(s.StdDev()))
	require.GreaterOrEqual(t, s.Variance(), 0.0)
}

func TestIgnoreSet(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	s := NewIgnoreSet(a)
	require.True(t, s.Contains(a))
	require.False(t, s.Contains(b))
}
