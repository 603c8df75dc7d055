// Package transport defines the per-subscription delivery capability. The
// engine is indifferent to what sits behind a Sink: a websocket, a local
// channel, or a test double.
package transport

import (
	"errors"

	"github.com/Adam-Cosner/monitord/internal/model"
)

// ErrWouldBlock reports a transient inability to accept a message. The
// delivery worker drops the tick and moves on; any other error from
// TrySend is terminal and retires the subscription.
var ErrWouldBlock = errors.New("transport: sink would block")

// ErrClosed is the terminal error a sink returns after Close.
var ErrClosed = errors.New("transport: sink closed")

// Sink accepts outgoing snapshots for one subscriber.
type Sink interface {
	// TrySend must not block: it either accepts the snapshot, reports
	// ErrWouldBlock, or fails terminally.
	TrySend(*model.Snapshot) error
	Close() error
}
