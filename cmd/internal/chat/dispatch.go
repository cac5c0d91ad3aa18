package chat

import (
	"context"
	"log/slog"

	"ruggine/cmd/internal/audit"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

// Auditor receives membership lifecycle events. *audit.Recorder implements it.
type Auditor interface {
	Record(e audit.Event)
}

type nopAuditor struct{}

func (nopAuditor) Record(audit.Event) {}

// Caller is the connection a request came from.
type Caller struct {
	// ID is the bound session, or uuid.Nil while unregistered.
	ID  uuid.UUID
	Out *Outbox
	Log *slog.Logger
}

// Result is what the connection state machine needs after a request.
type Result struct {
	Session    uuid.UUID
	Registered bool
	Close      bool
}

func keep(c Caller) Result {
	return Result{Session: c.ID, Registered: c.ID != uuid.Nil}
}

// Dispatcher routes decoded requests to their handlers. Replies go to the caller's
// outbox, fan-out goes to other outboxes, and neither happens under the Store lock.
type Dispatcher struct {
	store   *Store
	log     *slog.Logger
	metrics *Metrics
	audit   Auditor
	limits  Limits
}

// NewDispatcher constructs a Dispatcher over st.
func NewDispatcher(st *Store, log *slog.Logger, m *Metrics, a Auditor, limits Limits) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if a == nil {
		a = nopAuditor{}
	}
	return &Dispatcher{store: st, log: log, metrics: m, audit: a, limits: limits.withDefaults()}
}

// Dispatch handles one request. It never fails: problems are reported to the caller as frames.
func (d *Dispatcher) Dispatch(ctx context.Context, c Caller, req v1.Request) Result {
	if c.Log == nil {
		c.Log = d.log
	}
	d.metrics.request(req.Kind())

	if c.ID == uuid.Nil && !allowedUnregistered(req) {
		d.reply(c, v1.Error{Reason: "not registered"})
		return keep(c)
	}

	switch r := req.(type) {
	case v1.Register:
		return d.register(ctx, c, r)
	case v1.CreateGroup:
		d.createGroup(ctx, c, r)
	case v1.Invite:
		d.invite(ctx, c, r)
	case v1.JoinGroup:
		d.joinGroup(ctx, c, r)
	case v1.LeaveGroup:
		d.leaveGroup(ctx, c, r)
	case v1.SendMessage:
		d.sendMessage(ctx, c, r)
	case v1.GlobalMessage:
		d.globalMessage(ctx, c, r)
	case v1.ListGroups:
		d.listGroups(c)
	case v1.ListUsers:
		d.listUsers(c)
	case v1.Logout:
		return d.logout(ctx, c, r)
	case v1.Ping:
		d.reply(c, v1.Pong{})
	default:
		d.reply(c, v1.Error{Reason: "unsupported request " + req.Kind()})
	}
	return keep(c)
}

// Disconnect runs the cleanup of a session and records it. Calling it for an unknown
// or already cleaned session does nothing.
func (d *Dispatcher) Disconnect(ctx context.Context, id uuid.UUID, reason string, log *slog.Logger) {
	dep, ok := d.store.Disconnect(id)
	if !ok {
		return
	}
	if log == nil {
		log = d.log
	}
	log.InfoContext(ctx, "chat.disconnect",
		"session_id", id.String(),
		"nick", dep.Nick,
		"reason", reason,
		"groups_left", len(dep.Left),
		"groups_deleted", len(dep.Deleted),
		"invites_dropped", dep.Invites,
	)

	sid := id.String()
	d.audit.Record(audit.Event{Action: audit.ActionUserDisconnected, SessionID: sid, Nick: dep.Nick, Detail: reason})
	for _, g := range dep.Left {
		d.audit.Record(audit.Event{Action: audit.ActionGroupLeft, SessionID: sid, Nick: dep.Nick, Group: g})
	}
	for _, g := range dep.Deleted {
		d.audit.Record(audit.Event{Action: audit.ActionGroupDeleted, SessionID: sid, Nick: dep.Nick, Group: g})
	}
}

func allowedUnregistered(req v1.Request) bool {
	switch req.(type) {
	case v1.Register, v1.Ping, v1.Logout:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) reply(c Caller, r v1.Response) {
	c.Out.Push(r)
}

func (d *Dispatcher) fail(c Caller, err error) {
	c.Out.Push(v1.Error{Reason: Reason(err)})
}

func (d *Dispatcher) deliver(kind string, ds []Delivery) {
	n := 0
	for _, dl := range ds {
		if dl.To.Push(dl.Msg) {
			n++
		}
	}
	d.metrics.delivered(kind, n)
}
