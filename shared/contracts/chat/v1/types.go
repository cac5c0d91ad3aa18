package v1

import "github.com/google/uuid"

// Request is a client -> server frame. The set of implementations is closed.
type Request interface {
	Kind() string
	isRequest()
}

// Response is a server -> client frame. The set of implementations is closed.
type Response interface {
	Kind() string
	isResponse()
}

// ---- Requests ----

// Register binds a nickname to a session identifier. A nil ClientID asks the server to mint one.
type Register struct {
	Nick     string    `json:"nick"`
	ClientID uuid.UUID `json:"client_id"`
}

// CreateGroup creates a group with the caller as its only member.
type CreateGroup struct {
	Group string `json:"group"`
}

// Invite issues an invite code for Nick into Group.
type Invite struct {
	Group string `json:"group"`
	Nick  string `json:"nick"`
}

// JoinGroup consumes an invite code.
type JoinGroup struct {
	Group      string `json:"group"`
	InviteCode string `json:"invite_code"`
}

// LeaveGroup removes the caller from a group.
type LeaveGroup struct {
	Group string `json:"group"`
}

// SendMessage posts Text to every other member of Group. Nick is the sender's own nickname.
type SendMessage struct {
	Group string `json:"group"`
	Text  string `json:"text"`
	Nick  string `json:"nick"`
}

// GlobalMessage posts Text to every other connected user.
type GlobalMessage struct {
	Text string `json:"text"`
}

// ListGroups asks for the caller's groups.
type ListGroups struct{}

// ListUsers asks for the connected users.
type ListUsers struct{}

// Logout closes the session. Reason is informational.
type Logout struct {
	Reason *string `json:"reason,omitempty"`
}

// Ping is a liveness probe.
type Ping struct{}

func (Register) Kind() string      { return KindRegister }
func (CreateGroup) Kind() string   { return KindCreateGroup }
func (Invite) Kind() string        { return KindInvite }
func (JoinGroup) Kind() string     { return KindJoinGroup }
func (LeaveGroup) Kind() string    { return KindLeaveGroup }
func (SendMessage) Kind() string   { return KindSendMessage }
func (GlobalMessage) Kind() string { return KindGlobalMessage }
func (ListGroups) Kind() string    { return KindListGroups }
func (ListUsers) Kind() string     { return KindListUsers }
func (Logout) Kind() string        { return KindLogout }
func (Ping) Kind() string          { return KindPing }

func (Register) isRequest()      {}
func (CreateGroup) isRequest()   {}
func (Invite) isRequest()        {}
func (JoinGroup) isRequest()     {}
func (LeaveGroup) isRequest()    {}
func (SendMessage) isRequest()   {}
func (GlobalMessage) isRequest() {}
func (ListGroups) isRequest()    {}
func (ListUsers) isRequest()     {}
func (Logout) isRequest()        {}
func (Ping) isRequest()          {}

// ---- Responses ----

// Registered answers Register.
type Registered struct {
	OK     bool    `json:"ok"`
	Reason *string `json:"reason,omitempty"`
}

// InviteCode is pushed to the invite target. ClientID carries the inviter's nickname.
type InviteCode struct {
	Group    string `json:"group"`
	Code     string `json:"code"`
	ClientID string `json:"client_id"`
}

// InviteCodeForMe was sent to the inviter by earlier protocol revisions.
type InviteCodeForMe struct {
	Group string `json:"group"`
	Code  string `json:"code"`
}

// GroupCreated confirms CreateGroup.
type GroupCreated struct {
	Group string `json:"group"`
}

// Joined confirms JoinGroup.
type Joined struct {
	Group string `json:"group"`
}

// Left confirms LeaveGroup.
type Left struct {
	Group string `json:"group"`
}

// Message is a group message delivered to a member.
type Message struct {
	Group string `json:"group"`
	From  string `json:"from"`
	Text  string `json:"text"`
}

// MessageServer is an informational server notice.
type MessageServer struct {
	Text string `json:"text"`
}

// GlobalChat is a global message delivered to every other user (wire kind "GlobalMessage").
type GlobalChat struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Groups answers ListGroups.
type Groups struct {
	Groups []string `json:"groups"`
}

// Users answers ListUsers (wire kind "ListUsers").
type Users struct {
	Users []string `json:"users"`
}

// Error reports a request-scoped problem. It never closes the connection.
type Error struct {
	Reason string `json:"reason"`
}

// Pong answers Ping.
type Pong struct{}

func (Registered) Kind() string      { return KindRegistered }
func (InviteCode) Kind() string      { return KindInviteCode }
func (InviteCodeForMe) Kind() string { return KindInviteCodeForMe }
func (GroupCreated) Kind() string    { return KindGroupCreated }
func (Joined) Kind() string          { return KindJoined }
func (Left) Kind() string            { return KindLeft }
func (Message) Kind() string         { return KindMessage }
func (MessageServer) Kind() string   { return KindMessageServer }
func (GlobalChat) Kind() string      { return KindGlobalMessage }
func (Groups) Kind() string          { return KindGroups }
func (Users) Kind() string           { return KindListUsers }
func (Error) Kind() string           { return KindError }
func (Pong) Kind() string            { return KindPong }

func (Registered) isResponse()      {}
func (InviteCode) isResponse()      {}
func (InviteCodeForMe) isResponse() {}
func (GroupCreated) isResponse()    {}
func (Joined) isResponse()          {}
func (Left) isResponse()            {}
func (Message) isResponse()         {}
func (MessageServer) isResponse()   {}
func (GlobalChat) isResponse()      {}
func (Groups) isResponse()          {}
func (Users) isResponse()           {}
func (Error) isResponse()           {}
func (Pong) isResponse()            {}

// RegisteredOK is the successful Register answer.
func RegisteredOK() Registered { return Registered{OK: true} }

// RegisteredFail is a rejected Register answer.
func RegisteredFail(reason string) Registered {
	return Registered{OK: false, Reason: &reason}
}
