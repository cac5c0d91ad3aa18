package chat

import (
	"bufio"
	"context"
	"io"
	"sync"

	v1 "ruggine/shared/contracts/chat/v1"
)

// Outbox is the unbounded FIFO of frames waiting to be written to one connection.
//
// Push never blocks. A single writer drains it with Next. After Close, pushes are
// dropped and Next keeps returning what is still queued before reporting the end.
type Outbox struct {
	mu     sync.Mutex
	queue  []v1.Response
	closed bool

	wake chan struct{}
}

// NewOutbox constructs an empty, open Outbox.
func NewOutbox() *Outbox {
	return &Outbox{wake: make(chan struct{}, 1)}
}

// Push appends r. It reports false when the Outbox is already closed.
func (o *Outbox) Push(r v1.Response) bool {
	if o == nil || r == nil {
		return false
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, r)
	o.mu.Unlock()
	o.signal()
	return true
}

// Close stops accepting frames (idempotent).
func (o *Outbox) Close() {
	if o == nil {
		return
	}
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

// Len returns the number of queued frames.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Next blocks until frames are queued and returns all of them in FIFO order.
// It reports false once the Outbox is closed and empty, or ctx is done.
func (o *Outbox) Next(ctx context.Context) ([]v1.Response, bool) {
	for {
		o.mu.Lock()
		if len(o.queue) > 0 {
			batch := o.queue
			o.queue = nil
			o.mu.Unlock()
			return batch, true
		}
		closed := o.closed
		o.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-o.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (o *Outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// writeLoop encodes every frame of out onto w until out is closed and drained.
// One flush per batch keeps bursts to few syscalls.
func writeLoop(ctx context.Context, w io.Writer, out *Outbox) error {
	bw := bufio.NewWriter(w)
	for {
		batch, ok := out.Next(ctx)
		if !ok {
			return nil
		}
		for _, r := range batch {
			b, err := v1.EncodeResponse(r)
			if err != nil {
				return err
			}
			if _, err := bw.Write(b); err != nil {
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
}
