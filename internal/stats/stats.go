// internal/stats/stats.go
package stats

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Snapshot is the persisted global aggregate: the count of contributing
// accounts and the running sum and sum-of-squares of their raw scores.
// Mean and deviation are derived on read, never stored.
type Snapshot struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	SumSq float64 `json:"sum_sq"`
}

// Mean returns the population mean raw score, or 0 for an empty class.
func (s Snapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Variance returns the population variance, floored at 0 so that
// floating-point drift in sumSq can never produce a negative value.
func (s Snapshot) Variance() float64 {
	if s.Count == 0 {
		return 0
	}
	m := s.Mean()
	v := s.SumSq/float64(s.Count) - m*m
	if v < 0 {
		return 0
	}
	return v
}

// StdDev returns the population standard deviation.
func (s Snapshot) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Store maintains the singleton aggregate record. ApplyDelta must be a
// single atomic upsert: concurrent deltas on different accounts are pure
// increments and commute, which is why the aggregate is maintained
// incrementally instead of recomputed over all accounts.
type Store interface {
	Read(ctx context.Context) (Snapshot, error)
	ApplyDelta(ctx context.Context, oldScore, newScore float64, newContributor bool) error
}

// IgnoreSet holds account ids excluded from the global aggregate, such
// as system and test accounts.
type IgnoreSet map[uuid.UUID]struct{}

// NewIgnoreSet builds an IgnoreSet from the given ids.
func NewIgnoreSet(ids ...uuid.UUID) IgnoreSet {
	s := make(IgnoreSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is excluded from statistics.
func (s IgnoreSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Memory is a mutex-guarded in-process Store. It is the reference
// semantics for the Postgres implementation and backs tests.
type Memory struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{}
}

// Read returns the current aggregate.
func (m *Memory) Read(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

// ApplyDelta shifts the aggregate from oldScore to newScore for one
// account, bumping the contributor count when the account is new.
func (m *Memory) ApplyDelta(ctx context.Context, oldScore, newScore float64, newContributor bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Sum += newScore - oldScore
	m.snap.SumSq += newScore*newScore - oldScore*oldScore
	if newContributor {
		m.snap.Count++
	}
	return nil
}
