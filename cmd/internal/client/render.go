package client

import (
	"fmt"
	"strings"

	v1 "ruggine/shared/contracts/chat/v1"
)

// Render formats a server frame as one display line.
func Render(r v1.Response) string {
	switch m := r.(type) {
	case v1.Registered:
		if m.OK {
			return "[server] registration ok"
		}
		return "[server] registration rejected: " + reasonOr(m.Reason, "unknown reason")
	case v1.InviteCode:
		return fmt.Sprintf("[server] invite code for group '%s': %s from %s", m.Group, m.Code, m.ClientID)
	case v1.InviteCodeForMe:
		return fmt.Sprintf("[server] invite code for group '%s': %s", m.Group, m.Code)
	case v1.GroupCreated:
		return fmt.Sprintf("[server] group '%s' created", m.Group)
	case v1.Joined:
		return fmt.Sprintf("[server] you joined group '%s'", m.Group)
	case v1.Left:
		return fmt.Sprintf("[server] you left group '%s'", m.Group)
	case v1.Message:
		return fmt.Sprintf("[%s] <%s> %s", m.Group, m.From, m.Text)
	case v1.MessageServer:
		return "[server] " + m.Text
	case v1.GlobalChat:
		return fmt.Sprintf("[global] <%s> %s", m.From, m.Text)
	case v1.Groups:
		return "[server] groups: " + strings.Join(m.Groups, ", ")
	case v1.Users:
		return "[server] users: " + strings.Join(m.Users, ", ")
	case v1.Error:
		return "[error] " + m.Reason
	case v1.Pong:
		return "[server] pong"
	default:
		return fmt.Sprintf("[server] unexpected %s frame", r.Kind())
	}
}

func reasonOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
