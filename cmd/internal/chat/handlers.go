package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ruggine/cmd/internal/audit"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

func (d *Dispatcher) register(ctx context.Context, c Caller, r v1.Register) Result {
	reg, err := d.store.Register(RegisterInput{
		Caller:    c.ID,
		Nick:      r.Nick,
		Requested: r.ClientID,
		Out:       c.Out,
	})
	if err != nil {
		c.Log.InfoContext(ctx, "chat.register.fail", "nick", r.Nick, "err", err)
		d.reply(c, v1.RegisteredFail(Reason(err)))
		return keep(c)
	}

	d.reply(c, v1.RegisteredOK())
	c.Log.InfoContext(ctx, "chat.register.ok", "session_id", reg.ID.String(), "nick", reg.Nick, "recased", reg.Recased)
	if !reg.Recased {
		d.audit.Record(audit.Event{Action: audit.ActionUserRegistered, SessionID: reg.ID.String(), Nick: reg.Nick})
	}
	return Result{Session: reg.ID, Registered: true}
}

func (d *Dispatcher) createGroup(ctx context.Context, c Caller, r v1.CreateGroup) {
	name, err := d.store.CreateGroup(c.ID, r.Group)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.reply(c, v1.GroupCreated{Group: name})

	nick := d.nick(c.ID)
	c.Log.InfoContext(ctx, "chat.group.created", "group", name, "nick", nick)
	d.audit.Record(audit.Event{Action: audit.ActionGroupCreated, SessionID: c.ID.String(), Nick: nick, Group: name})
}

func (d *Dispatcher) invite(ctx context.Context, c Caller, r v1.Invite) {
	iss, err := d.store.Invite(c.ID, r.Group, r.Nick)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.deliver(v1.KindInviteCode, iss.Deliveries)
	d.reply(c, v1.MessageServer{Text: fmt.Sprintf("invite for group '%s' sent to %s", iss.Group, iss.Target)})

	c.Log.DebugContext(ctx, "chat.invite.issued", "group", iss.Group, "target", iss.Target, "superseded", iss.Superseded)
	d.audit.Record(audit.Event{
		Action:    audit.ActionInviteIssued,
		SessionID: c.ID.String(),
		Nick:      d.nick(c.ID),
		Group:     iss.Group,
		Detail:    "target=" + iss.Target,
	})
}

func (d *Dispatcher) joinGroup(ctx context.Context, c Caller, r v1.JoinGroup) {
	adm, err := d.store.Join(c.ID, r.Group, r.InviteCode)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.reply(c, v1.Joined{Group: adm.Group})

	nick, sid := d.nick(c.ID), c.ID.String()
	c.Log.InfoContext(ctx, "chat.group.joined", "group", adm.Group, "nick", nick, "recreated", adm.Created)
	d.audit.Record(audit.Event{Action: audit.ActionInviteConsumed, SessionID: sid, Nick: nick, Group: adm.Group})
	if adm.Created {
		d.audit.Record(audit.Event{Action: audit.ActionGroupCreated, SessionID: sid, Nick: nick, Group: adm.Group, Detail: "recreated by invite"})
	}
	d.audit.Record(audit.Event{Action: audit.ActionGroupJoined, SessionID: sid, Nick: nick, Group: adm.Group})
}

func (d *Dispatcher) leaveGroup(ctx context.Context, c Caller, r v1.LeaveGroup) {
	dep, err := d.store.Leave(c.ID, r.Group)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.reply(c, v1.Left{Group: dep.Group})

	nick, sid := d.nick(c.ID), c.ID.String()
	c.Log.InfoContext(ctx, "chat.group.left", "group", dep.Group, "nick", nick, "deleted", dep.Deleted)
	d.audit.Record(audit.Event{Action: audit.ActionGroupLeft, SessionID: sid, Nick: nick, Group: dep.Group})
	if dep.Deleted {
		d.audit.Record(audit.Event{Action: audit.ActionGroupDeleted, SessionID: sid, Nick: nick, Group: dep.Group})
	}
}

func (d *Dispatcher) sendMessage(ctx context.Context, c Caller, r v1.SendMessage) {
	if err := d.checkText("send_message", r.Text); err != nil {
		d.fail(c, err)
		return
	}
	ds, err := d.store.GroupFanout(c.ID, r.Group, r.Nick, r.Text)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.deliver(v1.KindMessage, ds)
	c.Log.DebugContext(ctx, "chat.message.group", "group", r.Group, "recipients", len(ds))
}

func (d *Dispatcher) globalMessage(ctx context.Context, c Caller, r v1.GlobalMessage) {
	if err := d.checkText("global_message", r.Text); err != nil {
		d.fail(c, err)
		return
	}
	ds, err := d.store.GlobalFanout(c.ID, r.Text)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.deliver(v1.KindGlobalMessage, ds)
	c.Log.DebugContext(ctx, "chat.message.global", "recipients", len(ds))
}

func (d *Dispatcher) listGroups(c Caller) {
	names, err := d.store.ListGroups(c.ID)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.reply(c, v1.Groups{Groups: names})
}

func (d *Dispatcher) listUsers(c Caller) {
	users, err := d.store.ListUsers(c.ID)
	if err != nil {
		d.fail(c, err)
		return
	}
	d.reply(c, v1.Users{Users: users})
}

func (d *Dispatcher) logout(ctx context.Context, c Caller, r v1.Logout) Result {
	reason := "logout"
	if r.Reason != nil && strings.TrimSpace(*r.Reason) != "" {
		reason = "logout: " + strings.TrimSpace(*r.Reason)
	}
	c.Log.DebugContext(ctx, "chat.logout", "reason", reason)
	d.Disconnect(ctx, c.ID, reason, c.Log)
	return Result{Session: uuid.Nil, Close: true}
}

func (d *Dispatcher) checkText(op, text string) error {
	if strings.TrimSpace(text) == "" {
		return opErr(op, ErrInvalidInput, "message text cannot be empty")
	}
	if n := utf8.RuneCountInString(text); n > d.limits.MaxMessageChars {
		return opErr(op, ErrInvalidInput, "message too long (%d characters, max %d)", n, d.limits.MaxMessageChars)
	}
	return nil
}

func (d *Dispatcher) nick(id uuid.UUID) string {
	n, _ := d.store.Nick(id)
	return n
}
