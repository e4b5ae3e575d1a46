package archive

import (
	"context"
	"strings"
	"sync"

	"market-intel/internal/domain"
)

// defaultRingCapacity bounds the in-memory archive.
const defaultRingCapacity = 2048

type ringEntry struct {
	article  domain.Article
	subjects map[string]struct{}
}

// memoryArchive is a fixed-capacity ring: the newest articles overwrite the
// oldest. Used when no archive DSN is configured.
type memoryArchive struct {
	mu       sync.RWMutex
	entries  []ringEntry
	next     int
	filled   bool
	capacity int
}

// NewMemoryArchive creates the ring-buffer archive.
func NewMemoryArchive(capacity int) domain.ArticleArchive {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	return &memoryArchive{
		entries:  make([]ringEntry, capacity),
		capacity: capacity,
	}
}

func (a *memoryArchive) SaveBatch(_ context.Context, articles []domain.Article) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, art := range articles {
		subjects := make(map[string]struct{})
		for _, tag := range domain.ExtractSubjectTags(strings.Join([]string{art.Title, art.Description, art.Content}, " ")) {
			subjects[tag] = struct{}{}
		}
		a.entries[a.next] = ringEntry{article: art, subjects: subjects}
		a.next++
		if a.next == a.capacity {
			a.next = 0
			a.filled = true
		}
	}
	return nil
}

// RecentBySubject walks the ring newest-first.
func (a *memoryArchive) RecentBySubject(_ context.Context, subject string, limit int) ([]domain.Article, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	size := a.next
	if a.filled {
		size = a.capacity
	}

	var articles []domain.Article
	for i := 1; i <= size && len(articles) < limit; i++ {
		idx := a.next - i
		if idx < 0 {
			idx += a.capacity
		}
		if _, ok := a.entries[idx].subjects[subject]; ok {
			articles = append(articles, a.entries[idx].article)
		}
	}
	return articles, nil
}
