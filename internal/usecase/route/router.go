// Package route fans committed batches out to per-subject recomputation with
// single-flight semantics: at most one recomputation runs per subject, at
// most one more is queued, and triggers arriving while one is queued coalesce
// into it.
package route

import (
	"context"
	"log/slog"
	"sync"

	"market-intel/internal/domain"
	"market-intel/internal/infra/logger"
)

// Recomputer produces a fresh verdict for one subject. Implementations must
// tolerate concurrent calls for different subjects.
type Recomputer interface {
	Recompute(ctx context.Context, subject string)
}

// SubjectActivity reports how many push subscribers a subject has. The
// router recomputes only subjects someone is listening to; a nil activity
// source routes every subject.
type SubjectActivity interface {
	SubjectSubscribers(subject string) int
}

// flight tracks the single-flight state of one subject. cur holds the
// waiters of the running recomputation, next the waiters of the queued one.
type flight struct {
	running bool
	pending bool
	cur     []chan struct{}
	next    []chan struct{}
}

// Router dispatches subject recomputations. Each distinct subject in a batch
// triggers independently; the market-wide pseudo-subject triggers whenever a
// committed chunk mentions the literal market token.
type Router struct {
	recomputer Recomputer
	activity   SubjectActivity // nil routes all subjects
	logger     *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

func NewRouter(recomputer Recomputer, activity SubjectActivity, logger *slog.Logger) *Router {
	return &Router{
		recomputer: recomputer,
		activity:   activity,
		logger:     logger,
		flights:    make(map[string]*flight),
	}
}

// Trigger requests a recomputation for subject. The returned channel closes
// once a recomputation that STARTED after this call completes, so the result
// is guaranteed to observe the commit that prompted the trigger. Triggers
// landing while a run is already queued share that run's channel.
func (r *Router) Trigger(ctx context.Context, subject string) <-chan struct{} {
	done := make(chan struct{})

	r.mu.Lock()
	f, ok := r.flights[subject]
	if !ok {
		f = &flight{}
		r.flights[subject] = f
	}
	switch {
	case !f.running:
		f.running = true
		f.cur = append(f.cur, done)
		go r.run(ctx, subject, f)
	case !f.pending:
		f.pending = true
		f.next = append(f.next, done)
	default:
		f.next = append(f.next, done)
	}
	r.mu.Unlock()

	return done
}

// run executes recomputations for subject until no trigger is pending.
func (r *Router) run(ctx context.Context, subject string, f *flight) {
	for {
		r.recomputeSafe(ctx, subject)

		r.mu.Lock()
		for _, done := range f.cur {
			close(done)
		}
		f.cur = nil
		if !f.pending {
			f.running = false
			r.mu.Unlock()
			return
		}
		f.pending = false
		f.cur, f.next = f.next, nil
		r.mu.Unlock()
	}
}

// recomputeSafe keeps a panicking recomputation from taking the flight loop
// down with it; the subject would otherwise wedge with running=true forever.
func (r *Router) recomputeSafe(ctx context.Context, subject string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("subject_recompute_panicked",
				"subject", subject,
				"panic", rec)
		}
	}()
	ctx = logger.WithSubject(ctx, subject)
	ctx = logger.WithStage(ctx, "recompute")
	r.recomputer.Recompute(ctx, subject)
}

// RouteBatch triggers every subject named by the batch and returns a channel
// that closes when all triggered recomputations have completed.
func (r *Router) RouteBatch(ctx context.Context, batch domain.CommittedBatch) <-chan struct{} {
	subjects := r.activeSubjects(collectSubjects(batch))

	all := make(chan struct{})
	if len(subjects) == 0 {
		close(all)
		return all
	}

	dones := make([]<-chan struct{}, 0, len(subjects))
	for _, subject := range subjects {
		dones = append(dones, r.Trigger(ctx, subject))
	}
	r.logger.Debug("batch_routed",
		"commit_seq", batch.CommitSeq,
		"subjects", len(subjects))

	go func() {
		for _, done := range dones {
			select {
			case <-done:
			case <-ctx.Done():
				close(all)
				return
			}
		}
		close(all)
	}()
	return all
}

// activeSubjects filters the batch subjects down to those with at least one
// push subscriber.
func (r *Router) activeSubjects(subjects []string) []string {
	if r.activity == nil {
		return subjects
	}
	active := subjects[:0]
	for _, s := range subjects {
		if r.activity.SubjectSubscribers(s) > 0 {
			active = append(active, s)
		}
	}
	return active
}

// collectSubjects returns the distinct chunk subject tags across the batch,
// with the market-wide pseudo-subject appended when any chunk mentions the
// literal market token.
func collectSubjects(batch domain.CommittedBatch) []string {
	seen := make(map[string]struct{})
	var subjects []string
	marketWide := false
	for _, c := range batch.Chunks {
		for _, tag := range c.SubjectTags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			subjects = append(subjects, tag)
		}
		if !marketWide && domain.ContainsMarketToken(c.Text) {
			marketWide = true
		}
	}
	if marketWide {
		subjects = append(subjects, domain.MarketSubject)
	}
	return subjects
}
