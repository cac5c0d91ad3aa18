package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	v1 "ruggine/shared/contracts/chat/v1"
)

func TestOutbox_FIFOAndDrainAfterClose(t *testing.T) {
	t.Parallel()

	o := NewOutbox()
	for _, text := range []string{"a", "b", "c"} {
		if !o.Push(v1.MessageServer{Text: text}) {
			t.Fatalf("Push(%s) rejected", text)
		}
	}
	o.Close()
	if o.Push(v1.Pong{}) {
		t.Fatalf("Push after Close should be rejected")
	}

	ctx := context.Background()
	batch, ok := o.Next(ctx)
	if !ok || len(batch) != 3 {
		t.Fatalf("batch=%v ok=%v want 3 frames", batch, ok)
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := batch[i].(v1.MessageServer).Text; got != want {
			t.Fatalf("batch[%d]=%q want=%q", i, got, want)
		}
	}
	if _, ok := o.Next(ctx); ok {
		t.Fatalf("Next on closed empty outbox should report false")
	}
}

func TestOutbox_NextWakesOnPush(t *testing.T) {
	t.Parallel()

	o := NewOutbox()
	got := make(chan []v1.Response, 1)
	go func() {
		b, _ := o.Next(context.Background())
		got <- b
	}()

	time.Sleep(10 * time.Millisecond)
	o.Push(v1.Pong{})

	select {
	case b := <-got:
		if len(b) != 1 {
			t.Fatalf("batch=%v", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Next did not wake up")
	}
}

func TestOutbox_NextStopsOnContext(t *testing.T) {
	t.Parallel()

	o := NewOutbox()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := o.Next(ctx); ok {
		t.Fatalf("Next should stop on a done context")
	}
}

func TestWriteLoop_EncodesLines(t *testing.T) {
	t.Parallel()

	o := NewOutbox()
	o.Push(v1.Joined{Group: "team"})
	o.Push(v1.Pong{})
	o.Close()

	var buf bytes.Buffer
	if err := writeLoop(context.Background(), &buf, o); err != nil {
		t.Fatalf("writeLoop: %v", err)
	}
	want := `{"kind":"Joined","group":"team"}` + "\n" + `{"kind":"Pong"}` + "\n"
	if buf.String() != want {
		t.Fatalf("wrote %q want %q", buf.String(), want)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected one line per frame")
	}
}
