package hub

import (
	"sync"

	"github.com/google/uuid"

	"market-intel/internal/infra/metrics"
)

// defaultSinkBuffer is the per-sink high-watermark when none is configured.
const defaultSinkBuffer = 64

// Sink is one subscriber's FIFO frame queue. The transport layer drains
// Frames until it closes; the hub owns the channel lifecycle.
type Sink struct {
	id      string
	subject string
	frames  chan []byte

	closeOnce sync.Once
}

func newSink(subject string, buffer int) *Sink {
	return &Sink{
		id:      uuid.NewString(),
		subject: subject,
		frames:  make(chan []byte, buffer),
	}
}

// ID returns the sink's opaque identifier.
func (s *Sink) ID() string { return s.id }

// Subject returns the subject the sink subscribed to, empty for global-only.
func (s *Sink) Subject() string { return s.subject }

// Frames is the delivery channel. Closed on unsubscribe.
func (s *Sink) Frames() <-chan []byte { return s.frames }

// offer enqueues frame, evicting the oldest pending frames while the queue
// is at its high-watermark. Only this sink's frames are ever dropped.
func (s *Sink) offer(frame []byte) {
	defer func() {
		// Offer racing close loses the frame, which is fine: the
		// subscriber is gone.
		_ = recover()
	}()
	for {
		select {
		case s.frames <- frame:
			return
		default:
		}
		select {
		case <-s.frames:
			metrics.FramesDropped.Inc()
		default:
		}
	}
}

func (s *Sink) close() {
	s.closeOnce.Do(func() { close(s.frames) })
}
