package chat

import (
	"ruggine/cmd/identity"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

func newGroup(name string, first uuid.UUID) *group {
	return &group{name: name, members: map[uuid.UUID]struct{}{first: {}}}
}

func (g *group) has(id uuid.UUID) bool {
	_, ok := g.members[id]
	return ok
}

// CreateGroup creates a group with caller as its only member and returns its canonical name.
func (s *Store) CreateGroup(caller uuid.UUID, name string) (string, error) {
	const op = "create_group"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.registered(op, caller); err != nil {
		return "", err
	}
	if err := identity.ValidateGroupName(name); err != nil {
		return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	key := identity.Normalize(name)
	if g, ok := s.groups[key]; ok {
		return "", opErr(op, ErrConflict, "a group named '%s' already exists (registered as '%s')", name, g.name)
	}
	if owner, ok := s.nicks[key]; ok {
		return "", opErr(op, ErrConflict, "the name '%s' is already used by user '%s'", name, s.users[owner].nick)
	}

	s.groups[key] = newGroup(name, caller)
	return name, nil
}

// Issued describes a freshly minted invite.
type Issued struct {
	Group      string
	Target     string
	Code       string
	Superseded int
	// Deliveries holds the InviteCode frame for the target when it has an outbox.
	Deliveries []Delivery
}

// Invite mints a code that lets target join groupName. Earlier live codes for the same
// (group, target) pair are dropped first.
func (s *Store) Invite(caller uuid.UUID, groupName, target string) (Issued, error) {
	const op = "invite"

	s.mu.Lock()
	defer s.mu.Unlock()

	inviter, err := s.registered(op, caller)
	if err != nil {
		return Issued{}, err
	}

	gk := identity.Normalize(groupName)
	g, ok := s.groups[gk]
	if !ok {
		return Issued{}, opErr(op, ErrNotFound, "group '%s' does not exist", groupName)
	}
	if !g.has(caller) {
		return Issued{}, opErr(op, ErrForbidden, "you are not a member of group '%s'", g.name)
	}

	tk := identity.Normalize(target)
	tid, ok := s.nicks[tk]
	if !ok {
		return Issued{}, opErr(op, ErrNotFound, "user '%s' does not exist", target)
	}
	tgt := s.users[tid]
	if g.has(tid) {
		return Issued{}, opErr(op, ErrConflict, "user '%s' is already a member of group '%s'", tgt.nick, g.name)
	}

	out := Issued{Group: g.name, Target: tgt.nick}
	out.Superseded = s.dropInvitesFor(gk, tk)
	out.Code = s.codes.NewCode()
	s.invites[out.Code] = pendingInvite{group: g.name, target: tgt.nick}

	if tgt.out != nil {
		out.Deliveries = []Delivery{{
			To:  tgt.out,
			Msg: v1.InviteCode{Group: g.name, Code: out.Code, ClientID: inviter.nick},
		}}
	}
	return out, nil
}

// Admission describes a successful JoinGroup.
type Admission struct {
	Group string
	// Created is true when the group had vanished and was recreated by this join.
	Created bool
	// Consumed counts every code removed, including the one presented.
	Consumed int
}

// Join consumes code and adds caller to the group it names. Every check runs before
// anything is consumed.
func (s *Store) Join(caller uuid.UUID, groupName, code string) (Admission, error) {
	const op = "join_group"

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.invites[code]
	if !ok {
		return Admission{}, opErr(op, ErrNotFound, "invalid invite")
	}
	gk := identity.Normalize(p.group)
	if identity.Normalize(groupName) != gk {
		return Admission{}, opErr(op, ErrForbidden, "this invite is not for group '%s'", groupName)
	}
	u, err := s.registered(op, caller)
	if err != nil {
		return Admission{}, err
	}
	uk := identity.Normalize(u.nick)
	if identity.Normalize(p.target) != uk {
		return Admission{}, opErr(op, ErrForbidden, "this invite is addressed to '%s'", p.target)
	}

	g, exists := s.groups[gk]
	if exists && g.has(caller) {
		return Admission{}, opErr(op, ErrConflict, "you are already a member of group '%s'", g.name)
	}
	if !exists {
		if owner, clash := s.nicks[gk]; clash {
			return Admission{}, opErr(op, ErrConflict, "the name '%s' is now used by user '%s'", p.group, s.users[owner].nick)
		}
	}

	a := Admission{Consumed: s.dropInvitesFor(gk, uk)}
	if !exists {
		g = newGroup(p.group, caller)
		s.groups[gk] = g
		a.Created = true
	} else {
		g.members[caller] = struct{}{}
	}
	a.Group = g.name
	return a, nil
}

// Departed describes a successful LeaveGroup.
type Departed struct {
	Group   string
	Deleted bool
}

// Leave removes caller from groupName, deleting the group once it is empty.
func (s *Store) Leave(caller uuid.UUID, groupName string) (Departed, error) {
	const op = "leave_group"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.registered(op, caller); err != nil {
		return Departed{}, err
	}
	gk := identity.Normalize(groupName)
	g, ok := s.groups[gk]
	if !ok {
		return Departed{}, opErr(op, ErrNotFound, "group '%s' does not exist", groupName)
	}
	if !g.has(caller) {
		return Departed{}, opErr(op, ErrForbidden, "you are not a member of group '%s'", g.name)
	}

	delete(g.members, caller)
	d := Departed{Group: g.name}
	if len(g.members) == 0 {
		delete(s.groups, gk)
		d.Deleted = true
	}
	return d, nil
}
