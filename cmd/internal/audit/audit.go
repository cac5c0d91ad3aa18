// Package audit records membership lifecycle events off the request path.
//
// Recording never blocks a connection: events go through a bounded queue drained by a
// single worker, and are dropped (and counted) when the queue is full. Message text is
// never part of an event.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Actions.
const (
	ActionUserRegistered   = "user.registered"
	ActionUserDisconnected = "user.disconnected"
	ActionGroupCreated     = "group.created"
	ActionGroupJoined      = "group.joined"
	ActionGroupLeft        = "group.left"
	ActionGroupDeleted     = "group.deleted"
	ActionInviteIssued     = "invite.issued"
	ActionInviteConsumed   = "invite.consumed"
)

// Event is one audit record.
type Event struct {
	At        time.Time
	Action    string
	SessionID string
	Nick      string
	Group     string
	Detail    string
}

// Sink persists batches of events. Write must not retain batch.
type Sink interface {
	Write(ctx context.Context, batch []Event) error
}

const (
	defaultBuffer   = 1024
	defaultBatch    = 64
	flushTimeout    = 5 * time.Second
	defaultInterval = 500 * time.Millisecond
)

// Recorder queues events for a Sink.
type Recorder struct {
	log  *slog.Logger
	sink Sink

	queue    chan Event
	batch    int
	interval time.Duration

	dropped     atomic.Uint64
	dropCounter prometheus.Counter

	now func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder) error

// WithBuffer sets the queue capacity.
func WithBuffer(n int) Option {
	return func(r *Recorder) error {
		if n <= 0 {
			return errors.New("audit: buffer must be > 0")
		}
		r.queue = make(chan Event, n)
		return nil
	}
}

// WithBatchSize caps how many events one Sink.Write receives.
func WithBatchSize(n int) Option {
	return func(r *Recorder) error {
		if n <= 0 {
			return errors.New("audit: batch size must be > 0")
		}
		r.batch = n
		return nil
	}
}

// WithFlushInterval sets how long the worker waits to fill a batch.
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) error {
		if d <= 0 {
			return errors.New("audit: flush interval must be > 0")
		}
		r.interval = d
		return nil
	}
}

// WithDropCounter mirrors dropped events into a Prometheus counter.
func WithDropCounter(c prometheus.Counter) Option {
	return func(r *Recorder) error {
		r.dropCounter = c
		return nil
	}
}

// NewRecorder constructs a Recorder. A nil sink logs events through log.
func NewRecorder(log *slog.Logger, sink Sink, opts ...Option) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = NewLogSink(log)
	}
	r := &Recorder{
		log:      log,
		sink:     sink,
		batch:    defaultBatch,
		interval: defaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.queue == nil {
		r.queue = make(chan Event, defaultBuffer)
	}
	return r, nil
}

// Record enqueues e without blocking. A zero At is stamped with the current time.
func (r *Recorder) Record(e Event) {
	if r == nil {
		return
	}
	if e.At.IsZero() {
		e.At = r.now()
	}
	select {
	case r.queue <- e:
	default:
		r.dropped.Add(1)
		if r.dropCounter != nil {
			r.dropCounter.Inc()
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Run drains the queue into the sink until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	buf := make([]Event, 0, r.batch)
	for {
		select {
		case <-ctx.Done():
			buf = r.drain(buf)
			r.flush(context.Background(), buf)
			return nil
		case e := <-r.queue:
			buf = append(buf, e)
			if len(buf) >= r.batch {
				buf = r.flush(ctx, buf)
			}
		case <-t.C:
			buf = r.flush(ctx, buf)
		}
	}
}

func (r *Recorder) drain(buf []Event) []Event {
	for {
		select {
		case e := <-r.queue:
			buf = append(buf, e)
		default:
			return buf
		}
	}
}

func (r *Recorder) flush(parent context.Context, buf []Event) []Event {
	if len(buf) == 0 {
		return buf
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), flushTimeout)
	defer cancel()

	for start := 0; start < len(buf); start += r.batch {
		end := min(start+r.batch, len(buf))
		if err := r.sink.Write(ctx, buf[start:end]); err != nil {
			r.log.Warn("audit.write.fail", "events", end-start, "err", err)
		}
	}
	return buf[:0]
}
