package chat

import (
	"sync"

	"ruggine/cmd/identity"
	"ruggine/cmd/internal/invite"
	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

// Delivery is one frame addressed to another connection's outbox.
// The Store only computes deliveries; pushing them is the caller's job, after the lock is released.
type Delivery struct {
	To  *Outbox
	Msg v1.Response
}

// Stats is a point-in-time view of the Store sizes.
type Stats struct {
	Users   int
	Groups  int
	Invites int
}

type member struct {
	id   uuid.UUID
	nick string // canonical display form
	out  *Outbox
}

type group struct {
	name    string // canonical display form
	members map[uuid.UUID]struct{}
}

type pendingInvite struct {
	group  string // canonical group name at issue time
	target string // canonical target nickname at issue time
}

func (p pendingInvite) matches(groupKey, targetKey string) bool {
	return identity.Normalize(p.group) == groupKey && identity.Normalize(p.target) == targetKey
}

// Store is the single shared state of the chat server.
//
// Every method takes the lock for the duration of in-memory work only.
// The nick and group indices are keyed by identity.Normalize and stay disjoint.
type Store struct {
	mu sync.RWMutex

	users   map[uuid.UUID]*member
	nicks   map[string]uuid.UUID
	groups  map[string]*group
	invites map[string]pendingInvite

	codes *invite.Generator
}

// NewStore constructs an empty Store. A nil generator falls back to the default one.
func NewStore(codes *invite.Generator) *Store {
	if codes == nil {
		codes, _ = invite.NewGenerator()
	}
	return &Store{
		users:   make(map[uuid.UUID]*member),
		nicks:   make(map[string]uuid.UUID),
		groups:  make(map[string]*group),
		invites: make(map[string]pendingInvite),
		codes:   codes,
	}
}

// Stats reports the current sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Users: len(s.users), Groups: len(s.groups), Invites: len(s.invites)}
}

// Nick returns the canonical nickname bound to id.
func (s *Store) Nick(id uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return "", false
	}
	return u.nick, true
}

// caller must hold s.mu.
func (s *Store) registered(op string, id uuid.UUID) (*member, error) {
	if id == uuid.Nil {
		return nil, notRegistered(op)
	}
	u, ok := s.users[id]
	if !ok {
		return nil, notRegistered(op)
	}
	return u, nil
}

// caller must hold s.mu.
func (s *Store) dropInvitesFor(groupKey, targetKey string) int {
	n := 0
	for code, p := range s.invites {
		if p.matches(groupKey, targetKey) {
			delete(s.invites, code)
			n++
		}
	}
	return n
}
