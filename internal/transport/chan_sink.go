package transport

import (
	"sync"

	"github.com/Adam-Cosner/monitord/internal/model"
)

// ChanSink adapts a bounded channel to the Sink capability. A full buffer
// reports ErrWouldBlock, which is exactly the coalescing backpressure the
// delivery workers expect. It is the in-process transport and the standard
// test double.
type ChanSink struct {
	mu     sync.Mutex
	ch     chan *model.Snapshot
	closed bool
}

// NewChanSink creates a sink buffering up to size snapshots. Size 0 is
// legal but drops every send that finds no concurrent receiver.
func NewChanSink(size int) *ChanSink {
	return &ChanSink{ch: make(chan *model.Snapshot, size)}
}

// C is the receive side handed to the consumer.
func (s *ChanSink) C() <-chan *model.Snapshot { return s.ch }

func (s *ChanSink) TrySend(snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- snap:
		return nil
	default:
		return ErrWouldBlock
	}
}

// Close makes every subsequent TrySend terminal and releases receivers.
// It is idempotent.
func (s *ChanSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
