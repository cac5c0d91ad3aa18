// Package main provides a CI-friendly WebSocket smoke test for the ruggine gateway.
//
// It validates:
//   - handshake + subprotocol selection
//   - registration of two users
//   - group creation, invite delivery and join
//   - group message fanout to the other member
//   - logout
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	subprotocol  = "ruggine.chat.v1"
	maxReadBytes = 1 << 20 // 1MiB
)

type smokeClient struct {
	name string
	nick string
	conn *websocket.Conn

	inbox chan v1.Response
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:7080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		group   = flag.String("group", "", "Group to create (default: random)")
		text    = flag.String("text", "hello ruggine 👋", "Message text to send")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	suffix := uuid.NewString()[:8]
	if strings.TrimSpace(*group) == "" {
		*group = "smoke-" + suffix
	}

	root := context.Background()

	a := mustConnect(root, "A", "smoke-a-"+suffix, *wsURL, *origin, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", "smoke-b-"+suffix, *wsURL, *origin, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("registered: A=%s B=%s origin=%q\n", a.nick, b.nick, *origin)
	}

	a.mustSend(root, v1.CreateGroup{Group: *group}, *timeout)
	if got, ok := a.mustRead(root, *timeout).(v1.GroupCreated); !ok || got.Group != *group {
		fatalf("create %s: unexpected reply %#v", *group, got)
	}

	a.mustSend(root, v1.Invite{Group: *group, Nick: b.nick}, *timeout)
	ic, ok := b.mustRead(root, *timeout).(v1.InviteCode)
	if !ok || ic.Group != *group || ic.ClientID != a.nick {
		fatalf("invite: B got %#v", ic)
	}
	if _, ok := a.mustRead(root, *timeout).(v1.MessageServer); !ok {
		fatalf("invite: A missing confirmation")
	}

	b.mustSend(root, v1.JoinGroup{Group: *group, InviteCode: ic.Code}, *timeout)
	if got, ok := b.mustRead(root, *timeout).(v1.Joined); !ok || got.Group != *group {
		fatalf("join: unexpected reply %#v", got)
	}

	a.mustSend(root, v1.SendMessage{Group: *group, Text: *text, Nick: a.nick}, *timeout)
	msg, ok := b.mustRead(root, *timeout).(v1.Message)
	if !ok || msg.From != a.nick || msg.Text != *text {
		fatalf("fanout: B got %#v", msg)
	}

	a.mustAssertSilent(root, 500*time.Millisecond)

	a.mustSend(root, v1.Logout{}, *timeout)
	b.mustSend(root, v1.Logout{}, *timeout)

	fmt.Printf("OK: A=%s B=%s group=%s code=%s\n", a.nick, b.nick, *group, ic.Code)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, nick, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, subprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		nick:  nick,
		conn:  conn,
		inbox: make(chan v1.Response, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	c.mustSend(parent, v1.Register{Nick: nick, ClientID: uuid.New()}, stepTimeout)
	r, ok := c.mustRead(parent, stepTimeout).(v1.Registered)
	if !ok || !r.OK {
		fatalf("register %s (%s): %#v", name, nick, r)
	}
	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

// startReadLoop splits each text frame into lines and decodes one response per line.
func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.fail(err)
				return
			}
			if mt != websocket.MessageText {
				c.fail(fmt.Errorf("unsupported message type: %v", mt))
				return
			}

			for _, line := range bytes.Split(data, []byte{'\n'}) {
				if len(bytes.TrimSpace(line)) == 0 {
					continue
				}
				r, err := v1.DecodeResponse(line)
				if err != nil {
					c.fail(fmt.Errorf("bad frame: %w", err))
					return
				}
				select {
				case c.inbox <- r:
				default:
					c.fail(errors.New("inbox overflow: consumer too slow"))
					return
				}
			}
		}
	}()
}

func (c *smokeClient) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

func (c *smokeClient) mustSend(parent context.Context, req v1.Request, stepTimeout time.Duration) {
	b, err := v1.EncodeRequest(req)
	if err != nil {
		fatalf("encode %s (%s): %v", req.Kind(), c.name, err)
	}
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write %s (%s): %v", req.Kind(), c.name, err)
	}
}

// mustRead returns the next frame; Error frames abort the run.
func (c *smokeClient) mustRead(parent context.Context, stepTimeout time.Duration) v1.Response {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case r, ok := <-c.inbox:
		if !ok {
			fatalf("read (%s): connection closed", c.name)
		}
		if e, isErr := r.(v1.Error); isErr {
			fatalf("server error (%s): %s", c.name, e.Reason)
		}
		return r
	case err := <-c.errCh:
		fatalf("read (%s): %v", c.name, err)
	case <-ctx.Done():
		fatalf("read (%s): timeout after %s", c.name, stepTimeout)
	}
	return nil
}

// mustAssertSilent fails if c receives anything within d (no self-echo).
func (c *smokeClient) mustAssertSilent(parent context.Context, d time.Duration) {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	select {
	case r, ok := <-c.inbox:
		if ok {
			fatalf("unexpected frame (%s): %#v", c.name, r)
		}
	case <-ctx.Done():
	}
}

func closeWS(c *websocket.Conn) {
	if c == nil {
		return
	}
	_ = c.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
