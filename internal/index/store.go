package index

import (
	"fmt"
	"sync"

	"market-intel/internal/domain"
)

type storedChunk struct {
	chunk     domain.Chunk
	commitSeq uint64
}

// Store binds the dense and sparse indices under one single-writer,
// many-reader discipline. A commit appends a batch to both indices while
// holding the write lock, so a query holding the read lock across both
// searches observes a commit prefix: a chunk visible in one index is
// visible in the other, or in neither.
type Store struct {
	mu        sync.RWMutex
	dense     *DenseIndex
	sparse    *SparseIndex
	chunks    map[string]storedChunk
	commitSeq uint64
}

func NewStore() *Store {
	return &Store{
		dense:  NewDenseIndex(),
		sparse: NewSparseIndex(),
		chunks: make(map[string]storedChunk),
	}
}

// Commit atomically appends a chunk batch with its vectors to both indices
// and returns the assigned commit sequence. Embedding happens before the
// call; the critical section never suspends. A mismatched or malformed
// batch fails before either index is touched, leaving both unchanged.
func (s *Store) Commit(chunks []domain.Chunk, vectors [][]float32) (uint64, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("commit: empty batch")
	}
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("commit: %d chunks for %d vectors", len(chunks), len(vectors))
	}

	ids := make([]domain.ChunkID, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate against the locked dense state first: Add mutates, and a
	// half-applied batch would break the lockstep guarantee.
	dim := s.dense.dim
	for _, vec := range vectors {
		if len(vec) == 0 {
			return 0, fmt.Errorf("commit: empty vector in batch")
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return 0, fmt.Errorf("commit: vector dim %d, index dim %d", len(vec), dim)
		}
	}

	if err := s.dense.Add(ids, vectors); err != nil {
		// Unreachable after validation above; a half-applied commit would
		// violate the lockstep invariant, so treat it as fatal.
		panic(fmt.Sprintf("index store: dense append failed after validation: %v", err))
	}
	s.sparse.Add(chunks)

	s.commitSeq++
	for _, c := range chunks {
		s.chunks[c.ID.String()] = storedChunk{chunk: c, commitSeq: s.commitSeq}
	}

	return s.commitSeq, nil
}

// Search runs both index searches under one read view. No commit can
// interleave between the dense and sparse legs.
func (s *Store) Search(queryVec []float32, queryText string, k int) (dense []Hit, sparse []Hit, seq uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dense.Search(queryVec, k), s.sparse.Search(queryText, k), s.commitSeq
}

// SearchSparse runs only the sparse leg, for callers without a query vector.
func (s *Store) SearchSparse(queryText string, k int) ([]Hit, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sparse.Search(queryText, k), s.commitSeq
}

// Chunk resolves a chunk id against the committed state.
func (s *Store) Chunk(id domain.ChunkID) (domain.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[id.String()]
	return stored.chunk, ok
}

// CommitSeqOf reports which commit made a chunk visible.
func (s *Store) CommitSeqOf(id domain.ChunkID) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.chunks[id.String()]
	return stored.commitSeq, ok
}

// Size returns the number of committed chunks.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sparse.Size()
}

// CommitSeq returns the sequence of the latest commit.
func (s *Store) CommitSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.commitSeq
}
