package chat

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/coder/websocket"
)

// WSSubprotocol is offered by browser and test clients; plain clients may omit it.
const WSSubprotocol = "ruggine.chat.v1"

// WSGateway carries the line protocol over WebSocket text frames.
//
// A frame may hold one or more newline-terminated requests; the connection is
// otherwise handled exactly like a TCP one.
type WSGateway struct {
	log            *slog.Logger
	srv            *Server
	originPatterns []string
}

// NewWSGateway constructs a gateway. origins are hosts or origins (scheme ignored) allowed
// for cross-origin upgrades; same-host upgrades are always allowed.
func NewWSGateway(log *slog.Logger, srv *Server, origins []string) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	return &WSGateway{
		log:            log,
		srv:            srv,
		originPatterns: deriveOriginPatterns(origins),
	}
}

func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{WSSubprotocol},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("chat.ws.reject", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		return
	}
	// Leave headroom for the newline and for frames batching several short lines.
	c.SetReadLimit(int64(g.srv.limits.MaxLineBytes) + 1)

	ctx := r.Context()
	nc := websocket.NetConn(ctx, c, websocket.MessageText)
	if err := g.srv.ServeConn(ctx, nc); err != nil {
		g.log.Warn("chat.ws.conn.error", "remote", r.RemoteAddr, "err", err)
		_ = c.Close(websocket.StatusPolicyViolation, "protocol error")
		return
	}
	_ = c.Close(websocket.StatusNormalClosure, "bye")
}

// originHost reduces an allowlist entry ("https://chat.example.com:8443", "localhost:7080",
// "127.0.0.1") to the lower-case host that websocket.Accept matches against.
func originHost(entry string) string {
	entry = strings.TrimSpace(entry)
	if _, rest, ok := strings.Cut(entry, "://"); ok {
		entry = rest
	}
	entry, _, _ = strings.Cut(entry, "/")
	if host, _, err := net.SplitHostPort(entry); err == nil {
		entry = host
	}
	return strings.ToLower(strings.Trim(entry, "[]"))
}

// deriveOriginPatterns turns the allowlist into sorted, de-duplicated host patterns.
func deriveOriginPatterns(allowed []string) []string {
	out := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if h := originHost(a); h != "" {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
