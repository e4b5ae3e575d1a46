// Package hub is the push fan-out layer: a subject-keyed registry of sinks
// receiving verdict and market-state frames as JSON.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"market-intel/internal/infra/metrics"
)

// Hub routes frames to subscriber sinks. Subject broadcasts reach the
// subject's sinks; global broadcasts reach every sink. Per-sink delivery is
// FIFO with drop-oldest backpressure; there is no cross-sink ordering.
type Hub struct {
	logger     *slog.Logger
	sinkBuffer int

	mu       sync.RWMutex
	subjects map[string]map[string]*Sink
	sinks    map[string]*Sink
}

func New(sinkBuffer int, logger *slog.Logger) *Hub {
	if sinkBuffer <= 0 {
		sinkBuffer = defaultSinkBuffer
	}
	return &Hub{
		logger:     logger,
		sinkBuffer: sinkBuffer,
		subjects:   make(map[string]map[string]*Sink),
		sinks:      make(map[string]*Sink),
	}
}

// Subscribe registers a new sink. A non-empty subject receives that
// subject's frames plus global frames; an empty subject receives global
// frames only.
func (h *Hub) Subscribe(subject string) *Sink {
	s := newSink(subject, h.sinkBuffer)

	h.mu.Lock()
	h.sinks[s.id] = s
	if subject != "" {
		group, ok := h.subjects[subject]
		if !ok {
			group = make(map[string]*Sink)
			h.subjects[subject] = group
		}
		group[s.id] = s
	}
	total := len(h.sinks)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(total))
	h.logger.Debug("sink_subscribed", "sink_id", s.id, "subject", subject, "total", total)
	return s
}

// Unsubscribe removes the sink from the registry and closes its frame
// channel. Safe to call more than once.
func (h *Hub) Unsubscribe(s *Sink) {
	h.mu.Lock()
	if _, ok := h.sinks[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sinks, s.id)
	if s.subject != "" {
		if group, ok := h.subjects[s.subject]; ok {
			delete(group, s.id)
			if len(group) == 0 {
				delete(h.subjects, s.subject)
			}
		}
	}
	total := len(h.sinks)
	h.mu.Unlock()

	s.close()
	metrics.Subscribers.Set(float64(total))
	h.logger.Debug("sink_unsubscribed", "sink_id", s.id, "subject", s.subject, "total", total)
}

// BroadcastSubject pushes payload to the subject's sinks. The payload is
// marshalled once; a sink that cannot keep up loses its oldest pending
// frames, never anyone else's.
func (h *Hub) BroadcastSubject(subject string, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("frame_marshal_failed", "subject", subject, "error", err.Error())
		return
	}

	h.mu.RLock()
	targets := make([]*Sink, 0, len(h.subjects[subject]))
	for _, s := range h.subjects[subject] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.offer(frame)
	}
	metrics.BroadcastTotal.WithLabelValues("subject").Add(float64(len(targets)))
}

// BroadcastGlobal pushes payload to every registered sink.
func (h *Hub) BroadcastGlobal(payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("frame_marshal_failed", "error", err.Error())
		return
	}

	h.mu.RLock()
	targets := make([]*Sink, 0, len(h.sinks))
	for _, s := range h.sinks {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.offer(frame)
	}
	metrics.BroadcastTotal.WithLabelValues("global").Add(float64(len(targets)))
}

// SubjectSubscribers returns the number of sinks subscribed to subject.
func (h *Hub) SubjectSubscribers(subject string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subjects[subject])
}

// Len returns the number of registered sinks.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}
