package chat

import (
	"sort"

	"ruggine/cmd/identity"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

// GroupFanout resolves the deliveries of a group message. sender is the nickname the
// client put in the frame; it must name the caller's own identity.
func (s *Store) GroupFanout(caller uuid.UUID, groupName, sender, text string) ([]Delivery, error) {
	const op = "send_message"

	s.mu.RLock()
	defer s.mu.RUnlock()

	sid, ok := s.nicks[identity.Normalize(sender)]
	if !ok {
		return nil, opErr(op, ErrInvalidInput, "unknown sender '%s'", sender)
	}
	g, ok := s.groups[identity.Normalize(groupName)]
	if !ok {
		return nil, opErr(op, ErrNotFound, "group '%s' does not exist", groupName)
	}
	if !g.has(sid) {
		return nil, opErr(op, ErrForbidden, "you are not a member of group '%s'", g.name)
	}
	u, err := s.registered(op, caller)
	if err != nil {
		return nil, err
	}
	if sid != caller {
		return nil, opErr(op, ErrForbidden, "sender '%s' does not match your session", sender)
	}

	msg := v1.Message{Group: g.name, From: u.nick, Text: text}
	out := make([]Delivery, 0, len(g.members))
	for id := range g.members {
		if id == caller {
			continue
		}
		if m, ok := s.users[id]; ok && m.out != nil {
			out = append(out, Delivery{To: m.out, Msg: msg})
		}
	}
	return out, nil
}

// GlobalFanout resolves the deliveries of a global message: every connected identity but the caller.
func (s *Store) GlobalFanout(caller uuid.UUID, text string) ([]Delivery, error) {
	const op = "global_message"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := s.registered(op, caller)
	if err != nil {
		return nil, err
	}

	msg := v1.GlobalChat{From: u.nick, Text: text}
	out := make([]Delivery, 0, len(s.users))
	for id, m := range s.users {
		if id == caller || m.out == nil {
			continue
		}
		out = append(out, Delivery{To: m.out, Msg: msg})
	}
	return out, nil
}

// ListGroups returns the canonical names of caller's groups, sorted case-insensitively.
func (s *Store) ListGroups(caller uuid.UUID) ([]string, error) {
	const op = "list_groups"

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.registered(op, caller); err != nil {
		return nil, err
	}

	var names []string
	for _, g := range s.groups {
		if g.has(caller) {
			names = append(names, g.name)
		}
	}
	if len(names) == 0 {
		return nil, opErr(op, ErrNotFound, "you are not a member of any group")
	}
	sortFolded(names)
	return names, nil
}

// SelfSuffix marks the caller's own entry in ListUsers.
const SelfSuffix = " (you)"

// ListUsers returns every connected nickname: the caller first, marked with SelfSuffix,
// then the others sorted case-insensitively.
func (s *Store) ListUsers(caller uuid.UUID) ([]string, error) {
	const op = "list_users"

	s.mu.RLock()
	defer s.mu.RUnlock()

	me, err := s.registered(op, caller)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(s.users))
	for id, m := range s.users {
		if id != caller {
			others = append(others, m.nick)
		}
	}
	sortFolded(others)
	return append([]string{me.nick + SelfSuffix}, others...), nil
}

func sortFolded(names []string) {
	keys := make(map[string]string, len(names))
	for _, n := range names {
		keys[n] = identity.Normalize(n)
	}
	sort.Slice(names, func(i, j int) bool {
		ki, kj := keys[names[i]], keys[names[j]]
		if ki != kj {
			return ki < kj
		}
		return names[i] < names[j]
	})
}
