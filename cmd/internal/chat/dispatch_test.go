package chat

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"ruggine/cmd/internal/audit"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memAuditor) Record(e audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *memAuditor) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Action)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	t    *testing.T
	st   *Store
	d    *Dispatcher
	m    *Metrics
	aud  *memAuditor
	ctx  context.Context
	peer map[string]*Caller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := newTestStore(t)
	m := NewMetrics(nil, st)
	aud := &memAuditor{}
	return &harness{
		t:    t,
		st:   st,
		d:    NewDispatcher(st, quietLogger(), m, aud, Limits{MaxMessageChars: 10}),
		m:    m,
		aud:  aud,
		ctx:  context.Background(),
		peer: map[string]*Caller{},
	}
}

// conn returns the caller state of a named test connection.
func (h *harness) conn(name string) *Caller {
	c, ok := h.peer[name]
	if !ok {
		c = &Caller{Out: NewOutbox(), Log: quietLogger()}
		h.peer[name] = c
	}
	return c
}

func (h *harness) do(name string, req v1.Request) Result {
	h.t.Helper()
	c := h.conn(name)
	res := h.d.Dispatch(h.ctx, *c, req)
	c.ID = res.Session
	return res
}

func (h *harness) frames(name string) []v1.Response {
	return drain(h.conn(name).Out)
}

func (h *harness) expectOne(name string, want v1.Response) {
	h.t.Helper()
	got := h.frames(name)
	if len(got) != 1 {
		h.t.Fatalf("%s frames=%#v want exactly %#v", name, got, want)
	}
	if !reflect.DeepEqual(got[0], want) {
		h.t.Fatalf("%s frame=%#v want=%#v", name, got[0], want)
	}
}

func (h *harness) expectError(name, contains string) {
	h.t.Helper()
	got := h.frames(name)
	if len(got) != 1 {
		h.t.Fatalf("%s frames=%#v want one Error", name, got)
	}
	e, ok := got[0].(v1.Error)
	if !ok || !strings.Contains(e.Reason, contains) {
		h.t.Fatalf("%s frame=%#v want Error containing %q", name, got[0], contains)
	}
}

func (h *harness) register(name string) {
	h.t.Helper()
	res := h.do(name, v1.Register{Nick: name, ClientID: uuid.New()})
	if !res.Registered {
		h.t.Fatalf("register %s failed: %#v", name, h.frames(name))
	}
	h.expectOne(name, v1.RegisteredOK())
}

func TestDispatch_AliceConflict(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")

	res := h.do("bob", v1.Register{Nick: "Alice", ClientID: uuid.New()})
	if res.Registered || res.Session != uuid.Nil {
		t.Fatalf("res=%+v want unregistered", res)
	}
	got := h.frames("bob")
	if len(got) != 1 {
		t.Fatalf("frames=%#v", got)
	}
	r, ok := got[0].(v1.Registered)
	if !ok || r.OK || r.Reason == nil || !strings.Contains(*r.Reason, "alice") {
		t.Fatalf("frame=%#v want Registered{ok:false} naming alice", got[0])
	}
}

func TestDispatch_TeamInviteJoinMessage(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")
	h.register("bob")

	h.do("alice", v1.CreateGroup{Group: "team"})
	h.expectOne("alice", v1.GroupCreated{Group: "team"})

	h.do("alice", v1.Invite{Group: "team", Nick: "bob"})
	bobFrames := h.frames("bob")
	if len(bobFrames) != 1 {
		t.Fatalf("bob frames=%#v", bobFrames)
	}
	ic, ok := bobFrames[0].(v1.InviteCode)
	if !ok || ic.Group != "team" || ic.ClientID != "alice" || len(ic.Code) != 6 {
		t.Fatalf("bob frame=%#v want InviteCode from alice", bobFrames[0])
	}
	aliceFrames := h.frames("alice")
	if len(aliceFrames) != 1 {
		t.Fatalf("alice frames=%#v", aliceFrames)
	}
	if _, ok := aliceFrames[0].(v1.MessageServer); !ok {
		t.Fatalf("alice frame=%#v want MessageServer", aliceFrames[0])
	}

	h.do("bob", v1.JoinGroup{Group: "team", InviteCode: ic.Code})
	h.expectOne("bob", v1.Joined{Group: "team"})

	h.do("bob", v1.SendMessage{Group: "team", Text: "hi", Nick: "bob"})
	h.expectOne("alice", v1.Message{Group: "team", From: "bob", Text: "hi"})
	if got := h.frames("bob"); len(got) != 0 {
		t.Fatalf("bob got its own echo: %#v", got)
	}

	if got := testutil.ToFloat64(h.m.deliveries.WithLabelValues(v1.KindMessage)); got != 1 {
		t.Fatalf("message deliveries=%v want=1", got)
	}
	wantAudit := []string{
		audit.ActionUserRegistered, audit.ActionUserRegistered,
		audit.ActionGroupCreated, audit.ActionInviteIssued,
		audit.ActionInviteConsumed, audit.ActionGroupJoined,
	}
	if got := h.aud.actions(); strings.Join(got, ",") != strings.Join(wantAudit, ",") {
		t.Fatalf("audit=%v want=%v", got, wantAudit)
	}
}

func TestDispatch_LeaveLeaveRecreate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")

	h.do("alice", v1.CreateGroup{Group: "team"})
	h.expectOne("alice", v1.GroupCreated{Group: "team"})

	h.do("alice", v1.LeaveGroup{Group: "team"})
	h.expectOne("alice", v1.Left{Group: "team"})

	h.do("alice", v1.LeaveGroup{Group: "team"})
	h.expectError("alice", "does not exist")

	h.do("alice", v1.CreateGroup{Group: "team"})
	h.expectOne("alice", v1.GroupCreated{Group: "team"})
}

func TestDispatch_UnregisteredGate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	gated := []v1.Request{
		v1.CreateGroup{Group: "team"},
		v1.Invite{Group: "team", Nick: "bob"},
		v1.JoinGroup{Group: "team", InviteCode: "abc123"},
		v1.LeaveGroup{Group: "team"},
		v1.SendMessage{Group: "team", Text: "x", Nick: "bob"},
		v1.GlobalMessage{Text: "x"},
		v1.ListGroups{},
		v1.ListUsers{},
	}
	for _, req := range gated {
		res := h.do("eve", req)
		if res.Close || res.Registered {
			t.Fatalf("%s: res=%+v", req.Kind(), res)
		}
		h.expectOne("eve", v1.Error{Reason: "not registered"})
	}

	h.do("eve", v1.Ping{})
	h.expectOne("eve", v1.Pong{})

	res := h.do("eve", v1.Logout{})
	if !res.Close {
		t.Fatalf("logout while unregistered should close")
	}
}

func TestDispatch_LogoutCleansUp(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")
	h.register("bob")
	h.do("alice", v1.CreateGroup{Group: "team"})
	h.frames("alice")

	reason := "bye"
	res := h.do("alice", v1.Logout{Reason: &reason})
	if !res.Close || res.Session != uuid.Nil {
		t.Fatalf("res=%+v want close with no session", res)
	}
	stats := h.st.Stats()
	if stats.Users != 1 || stats.Groups != 0 {
		t.Fatalf("stats=%+v", stats)
	}

	h.do("bob", v1.ListUsers{})
	h.expectOne("bob", v1.Users{Users: []string{"bob (you)"}})
}

func TestDispatch_TextLimits(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")
	h.register("bob")

	h.do("alice", v1.GlobalMessage{Text: "   "})
	h.expectError("alice", "cannot be empty")

	h.do("alice", v1.GlobalMessage{Text: strings.Repeat("é", 11)})
	h.expectError("alice", "too long")

	h.do("alice", v1.GlobalMessage{Text: strings.Repeat("é", 10)})
	h.expectOne("bob", v1.GlobalChat{From: "alice", Text: strings.Repeat("é", 10)})
	if got := h.frames("alice"); len(got) != 0 {
		t.Fatalf("alice frames=%#v want none", got)
	}
}

func TestDispatch_ListsAndRecase(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.register("alice")
	h.register("bob")

	h.do("alice", v1.ListGroups{})
	h.expectError("alice", "not a member of any group")

	res := h.do("alice", v1.Register{Nick: "ALICE"})
	if !res.Registered {
		t.Fatalf("recase should keep the session")
	}
	h.expectOne("alice", v1.RegisteredOK())

	h.do("bob", v1.ListUsers{})
	h.expectOne("bob", v1.Users{Users: []string{"bob (you)", "ALICE"}})

	res = h.do("bob", v1.Register{Nick: "carol"})
	if !res.Registered {
		t.Fatalf("failed re-register must keep the existing session")
	}
	got := h.frames("bob")
	if r, ok := got[0].(v1.Registered); !ok || r.OK || *r.Reason != "already registered as 'bob'" {
		t.Fatalf("frame=%#v", got[0])
	}

	if got := testutil.ToFloat64(h.m.requests.WithLabelValues(v1.KindRegister)); got != 4 {
		t.Fatalf("register requests=%v want=4", got)
	}
}
