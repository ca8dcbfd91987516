package repository

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/cprtrace/cprtrace/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount = 8
)

// shard holds one partition of the review map.
type shard struct {
	mu      sync.RWMutex
	reviews map[string]Review
}

// MapStore implements Store with a sharded map plus a recency list.
// Reviews are keyed lookups and recency listings, never range scans,
// so a plain map per shard is enough.
type MapStore struct {
	shards []*shard

	// recency tracks case IDs most recently stored first.
	recencyMu sync.Mutex
	recency   []string
}

// NewMapStore creates a MapStore with configuration options.
func NewMapStore(opts ...Option) *MapStore {
	s := &MapStore{}
	cfg := storeConfig{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.shards = make([]*shard, cfg.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{reviews: make(map[string]Review)}
	}
	return s
}

func (s *MapStore) shardFor(caseID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(caseID))
	return s.shards[int(h.Sum32())%len(s.shards)]
}

// Put stores a review, replacing any earlier review of the same case.
func (s *MapStore) Put(ctx context.Context, r Review) error {
	sh := s.shardFor(r.CaseID)
	sh.mu.Lock()
	_, existed := sh.reviews[r.CaseID]
	sh.reviews[r.CaseID] = r
	sh.mu.Unlock()

	s.recencyMu.Lock()
	if existed {
		for i, id := range s.recency {
			if id == r.CaseID {
				s.recency = append(s.recency[:i], s.recency[i+1:]...)
				break
			}
		}
	}
	s.recency = append([]string{r.CaseID}, s.recency...)
	s.recencyMu.Unlock()

	metrics.UpdateStoredReviews(s.Count(ctx))
	return nil
}

// Get returns the review for a case.
func (s *MapStore) Get(_ context.Context, caseID string) (Review, error) {
	sh := s.shardFor(caseID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	r, ok := sh.reviews[caseID]
	if !ok {
		return Review{}, ErrNotFound
	}
	return r, nil
}

// Recent returns up to n reviews, most recently stored first.
func (s *MapStore) Recent(ctx context.Context, n int) ([]Review, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.recencyMu.Lock()
	ids := make([]string, 0, n)
	for _, id := range s.recency {
		ids = append(ids, id)
		if len(ids) == n {
			break
		}
	}
	s.recencyMu.Unlock()

	out := make([]Review, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Count returns the number of reviews held.
func (s *MapStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.reviews)
		sh.mu.RUnlock()
	}
	return total
}
