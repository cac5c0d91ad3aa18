package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memSink struct {
	mu     sync.Mutex
	events []Event
	writes int
}

func (m *memSink) Write(_ context.Context, batch []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, batch...)
	m.writes++
	return nil
}

func (m *memSink) snapshot() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorder_FlushesOnShutdown(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	r, err := NewRecorder(quietLogger(), sink, WithFlushInterval(time.Hour), WithBatchSize(2))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	r.Record(Event{Action: ActionUserRegistered, Nick: "alice"})
	r.Record(Event{Action: ActionGroupCreated, Nick: "alice", Group: "team"})
	r.Record(Event{Action: ActionInviteIssued, Nick: "alice", Group: "team"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.snapshot()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := sink.snapshot()
	if len(got) != 3 {
		t.Fatalf("events=%d want=3", len(got))
	}
	want := []string{ActionUserRegistered, ActionGroupCreated, ActionInviteIssued}
	for i, e := range got {
		if e.Action != want[i] {
			t.Fatalf("event[%d].Action=%q want=%q", i, e.Action, want[i])
		}
		if e.At.IsZero() {
			t.Fatalf("event[%d] was not stamped", i)
		}
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	t.Parallel()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_audit_dropped_total"})
	r, err := NewRecorder(quietLogger(), &memSink{}, WithBuffer(2), WithDropCounter(c))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	for i := 0; i < 5; i++ {
		r.Record(Event{Action: ActionGroupJoined})
	}
	if got := r.Dropped(); got != 3 {
		t.Fatalf("Dropped()=%d want=3", got)
	}
	if got := testutil.ToFloat64(c); got != 3 {
		t.Fatalf("counter=%v want=3", got)
	}
}

func TestNewRecorder_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	cases := []Option{WithBuffer(0), WithBatchSize(-1), WithFlushInterval(0)}
	for i, opt := range cases {
		if _, err := NewRecorder(nil, nil, opt); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.Record(Event{Action: ActionGroupLeft})
}

func TestWithSchema_Validates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in string
		ok bool
	}{
		{"ruggine", true},
		{"audit_2", true},
		{"", false},
		{"2bad", false},
		{`x"; DROP TABLE y; --`, false},
	}
	for _, tc := range cases {
		s := &PostgresSink{}
		err := WithSchema(tc.in)(s)
		if (err == nil) != tc.ok {
			t.Fatalf("WithSchema(%q) err=%v ok=%v", tc.in, err, tc.ok)
		}
	}

	if _, err := NewPostgresSink(nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
}
