package aggregate

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenSet is the aggregator's deduplication memory: every fingerprint that
// was ever admitted, bounded by LRU eviction at the high-watermark. The
// capacity must stay well above the per-tick arrival rate (two orders of
// magnitude) so an article cannot be re-admitted while still circulating
// on provider feeds.
type SeenSet struct {
	cache *lru.Cache[string, time.Time]
}

// NewSeenSet creates a seen-set holding up to capacity fingerprints.
func NewSeenSet(capacity int) (*SeenSet, error) {
	cache, err := lru.New[string, time.Time](capacity)
	if err != nil {
		return nil, err
	}
	return &SeenSet{cache: cache}, nil
}

// Observe marks fingerprint as seen. It returns true when the fingerprint
// is new, false when it was already admitted (a duplicate).
func (s *SeenSet) Observe(fingerprint string) bool {
	if s.cache.Contains(fingerprint) {
		// Refresh recency so articles still circulating on feeds are not
		// evicted ahead of stale ones.
		s.cache.Add(fingerprint, time.Now())
		return false
	}
	s.cache.Add(fingerprint, time.Now())
	return true
}

// Contains reports whether fingerprint was admitted and is still tracked.
func (s *SeenSet) Contains(fingerprint string) bool {
	return s.cache.Contains(fingerprint)
}

// Len returns the number of tracked fingerprints.
func (s *SeenSet) Len() int {
	return s.cache.Len()
}
