// Package market keeps the latest published state per subject.
package market

import (
	"sort"
	"sync"

	"market-intel/internal/domain"
)

// Registry is the in-memory subject-state table. Updates are
// compare-and-swap on timestamp: a state older than the stored one is
// rejected, so concurrent recomputations can never roll a subject backwards.
type Registry struct {
	mu     sync.RWMutex
	states map[string]domain.SubjectState
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[string]domain.SubjectState)}
}

// Update stores state unless the registry already holds a newer entry for
// the subject. Returns whether the state was accepted.
func (r *Registry) Update(state domain.SubjectState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.states[state.Subject]
	if ok && current.LastUpdated.After(state.LastUpdated) {
		return false
	}
	r.states[state.Subject] = state
	return true
}

// Get returns the stored state for subject.
func (r *Registry) Get(subject string) (domain.SubjectState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[subject]
	return state, ok
}

// Snapshot returns all subject states sorted by subject for stable output.
func (r *Registry) Snapshot() []domain.SubjectState {
	r.mu.RLock()
	states := make([]domain.SubjectState, 0, len(r.states))
	for _, s := range r.states {
		states = append(states, s)
	}
	r.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].Subject < states[j].Subject
	})
	return states
}

// Len returns the number of tracked subjects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
