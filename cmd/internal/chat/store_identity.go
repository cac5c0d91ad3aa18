package chat

import (
	"ruggine/cmd/identity"

	"github.com/google/uuid"
)

// RegisterInput is the Store-level view of a Register request.
type RegisterInput struct {
	// Caller is the session already bound to the connection, or uuid.Nil.
	Caller uuid.UUID
	Nick   string
	// Requested is the id proposed by the client. uuid.Nil asks the Store to mint one.
	Requested uuid.UUID
	Out       *Outbox
}

// Registration describes a successful Register.
type Registration struct {
	ID   uuid.UUID
	Nick string
	// Recased is true when an existing identity adopted a new spelling of its own nickname.
	Recased bool
}

// Register binds a nickname to a session identifier.
func (s *Store) Register(in RegisterInput) (Registration, error) {
	const op = "register"

	if err := identity.ValidateNickname(in.Nick); err != nil {
		return Registration{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}
	key := identity.Normalize(in.Nick)

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Caller != uuid.Nil {
		if cur, ok := s.users[in.Caller]; ok {
			if (in.Requested != uuid.Nil && in.Requested != in.Caller) || identity.Normalize(cur.nick) != key {
				return Registration{}, opErr(op, ErrForbidden, "already registered as '%s'", cur.nick)
			}
			cur.nick = in.Nick
			if in.Out != nil {
				cur.out = in.Out
			}
			return Registration{ID: cur.id, Nick: cur.nick, Recased: true}, nil
		}
	}

	if owner, ok := s.nicks[key]; ok {
		return Registration{}, opErr(op, ErrConflict, "a user named '%s' already exists (registered as '%s')", in.Nick, s.users[owner].nick)
	}
	if g, ok := s.groups[key]; ok {
		return Registration{}, opErr(op, ErrConflict, "the name '%s' is already used by group '%s'", in.Nick, g.name)
	}

	id := in.Requested
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, taken := s.users[id]; taken {
		return Registration{}, opErr(op, ErrConflict, "client id %s is already in use", id)
	}

	s.users[id] = &member{id: id, nick: in.Nick, out: in.Out}
	s.nicks[key] = id
	return Registration{ID: id, Nick: in.Nick}, nil
}

// Departure describes what Disconnect removed.
type Departure struct {
	Nick    string
	Left    []string // groups the identity was removed from
	Deleted []string // groups removed because they became empty
	Invites int      // invites dropped because they targeted the identity
}

// Disconnect removes every trace of id in one exclusive section. It reports false when
// id was not registered, which makes repeated calls harmless.
func (s *Store) Disconnect(id uuid.UUID) (Departure, bool) {
	if id == uuid.Nil {
		return Departure{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return Departure{}, false
	}
	key := identity.Normalize(u.nick)

	delete(s.users, id)
	if s.nicks[key] == id {
		delete(s.nicks, key)
	}

	d := Departure{Nick: u.nick}
	for gk, g := range s.groups {
		if _, in := g.members[id]; !in {
			continue
		}
		delete(g.members, id)
		d.Left = append(d.Left, g.name)
		if len(g.members) == 0 {
			delete(s.groups, gk)
			d.Deleted = append(d.Deleted, g.name)
		}
	}

	for code, p := range s.invites {
		if identity.Normalize(p.target) == key {
			delete(s.invites, code)
			d.Invites++
		}
	}
	return d, true
}
