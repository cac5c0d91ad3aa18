// Package v1 defines the ruggine chat line protocol v1 contract.
//
// Every frame is one JSON object terminated by '\n'. The "kind" field selects the variant.
// This package is shared by the server and the client to keep the wire format authoritative.
package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// KindField is the discriminator key carried by every frame.
const KindField = "kind"

// Request kinds (client -> server).
const (
	KindRegister      = "Register"
	KindCreateGroup   = "CreateGroup"
	KindInvite        = "Invite"
	KindJoinGroup     = "JoinGroup"
	KindLeaveGroup    = "LeaveGroup"
	KindSendMessage   = "SendMessage"
	KindGlobalMessage = "GlobalMessage"
	KindListGroups    = "ListGroups"
	KindListUsers     = "ListUsers"
	KindLogout        = "Logout"
	KindPing          = "Ping"
)

// Response kinds (server -> client). GlobalMessage and ListUsers share their
// names with the request kinds.
const (
	KindRegistered      = "Registered"
	KindInviteCode      = "InviteCode"
	KindInviteCodeForMe = "InviteCodeForMe"
	KindGroupCreated    = "GroupCreated"
	KindJoined          = "Joined"
	KindLeft            = "Left"
	KindMessage         = "Message"
	KindMessageServer   = "MessageServer"
	KindGroups          = "Groups"
	KindError           = "Error"
	KindPong            = "Pong"
)

// ErrUnknownKind is returned when the discriminator names no known variant.
var ErrUnknownKind = errors.New("unknown kind")

type header struct {
	Kind string `json:"kind"`
}

// DecodeRequest parses one client frame. Surrounding whitespace is ignored.
func DecodeRequest(line []byte) (Request, error) {
	kind, err := peekKind(line)
	if err != nil {
		return nil, err
	}

	var req Request
	switch kind {
	case KindRegister:
		req = &Register{}
	case KindCreateGroup:
		req = &CreateGroup{}
	case KindInvite:
		req = &Invite{}
	case KindJoinGroup:
		req = &JoinGroup{}
	case KindLeaveGroup:
		req = &LeaveGroup{}
	case KindSendMessage:
		req = &SendMessage{}
	case KindGlobalMessage:
		req = &GlobalMessage{}
	case KindListGroups:
		return ListGroups{}, nil
	case KindListUsers:
		return ListUsers{}, nil
	case KindLogout:
		req = &Logout{}
	case KindPing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := json.Unmarshal(line, req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(req), nil
}

// EncodeRequest renders a client frame including the trailing newline.
func EncodeRequest(r Request) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil request")
	}
	return encodeTagged(r.Kind(), r)
}

// DecodeResponse parses one server frame.
func DecodeResponse(line []byte) (Response, error) {
	kind, err := peekKind(line)
	if err != nil {
		return nil, err
	}

	var resp Response
	switch kind {
	case KindRegistered:
		resp = &Registered{}
	case KindInviteCode:
		resp = &InviteCode{}
	case KindInviteCodeForMe:
		resp = &InviteCodeForMe{}
	case KindGroupCreated:
		resp = &GroupCreated{}
	case KindJoined:
		resp = &Joined{}
	case KindLeft:
		resp = &Left{}
	case KindMessage:
		resp = &Message{}
	case KindMessageServer:
		resp = &MessageServer{}
	case KindGlobalMessage:
		resp = &GlobalChat{}
	case KindGroups:
		resp = &Groups{}
	case KindListUsers:
		resp = &Users{}
	case KindError:
		resp = &Error{}
	case KindPong:
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := json.Unmarshal(line, resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return derefResponse(resp), nil
}

// EncodeResponse renders a server frame including the trailing newline.
func EncodeResponse(r Response) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil response")
	}
	return encodeTagged(r.Kind(), r)
}

func peekKind(line []byte) (string, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", errors.New("empty frame")
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return "", err
	}
	kind := strings.TrimSpace(h.Kind)
	if kind == "" {
		return "", errors.New("missing field: kind")
	}
	return kind, nil
}

// encodeTagged splices the kind discriminator in front of the payload fields.
func encodeTagged(kind string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(kind)

	var b bytes.Buffer
	b.Grow(len(body) + len(tag) + 12)
	b.WriteString(`{"kind":`)
	b.Write(tag)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		b.WriteByte(',')
		b.Write(inner)
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func deref(r Request) Request {
	switch v := r.(type) {
	case *Register:
		return *v
	case *CreateGroup:
		return *v
	case *Invite:
		return *v
	case *JoinGroup:
		return *v
	case *LeaveGroup:
		return *v
	case *SendMessage:
		return *v
	case *GlobalMessage:
		return *v
	case *Logout:
		return *v
	default:
		return r
	}
}

func derefResponse(r Response) Response {
	switch v := r.(type) {
	case *Registered:
		return *v
	case *InviteCode:
		return *v
	case *InviteCodeForMe:
		return *v
	case *GroupCreated:
		return *v
	case *Joined:
		return *v
	case *Left:
		return *v
	case *Message:
		return *v
	case *MessageServer:
		return *v
	case *GlobalChat:
		return *v
	case *Groups:
		return *v
	case *Users:
		return *v
	case *Error:
		return *v
	default:
		return r
	}
}
