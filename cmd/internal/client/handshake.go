package client

import (
	"errors"
	"fmt"
	"io"
	"strings"

	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/google/uuid"
)

// Session is the identity the server accepted.
type Session struct {
	ID   uuid.UUID
	Nick string
}

// PromptFunc asks the user for a nickname.
type PromptFunc func() (string, error)

// Handshake registers on c, retrying until the server accepts a nickname. nick is tried
// first when non-empty; afterwards, and after every rejection, prompt supplies the next
// candidate. Every attempt uses a fresh session identifier. Rejections are written to w.
func Handshake(c *Conn, nick string, prompt PromptFunc, w io.Writer) (Session, error) {
	next := strings.TrimSpace(nick)
	for {
		if next == "" {
			if prompt == nil {
				return Session{}, errors.New("client: no nickname to register")
			}
			n, err := prompt()
			if err != nil {
				return Session{}, fmt.Errorf("client: read nickname: %w", err)
			}
			next = strings.TrimSpace(n)
			if next == "" {
				continue
			}
		}

		id := uuid.New()
		if err := c.Send(v1.Register{Nick: next, ClientID: id}); err != nil {
			return Session{}, err
		}
		res, err := c.Recv()
		if err != nil {
			return Session{}, fmt.Errorf("client: registration: %w", err)
		}

		switch r := res.(type) {
		case v1.Registered:
			if r.OK {
				return Session{ID: id, Nick: next}, nil
			}
			fmt.Fprintln(w, Render(r))
		default:
			fmt.Fprintln(w, "[server] unexpected reply during registration: "+Render(res))
		}
		next = ""
	}
}

// WelcomeLines are printed once registration succeeds.
func WelcomeLines(s Session) []string {
	return []string{
		fmt.Sprintf("[server] logged in as %s", s.Nick),
		"[server] send '/' to show the commands",
	}
}
