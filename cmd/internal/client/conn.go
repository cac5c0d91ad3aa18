package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	v1 "ruggine/shared/contracts/chat/v1"
)

// maxFrameBytes bounds a single server frame.
const maxFrameBytes = 1 << 20

// Conn speaks the line protocol over a net.Conn. Send is safe for concurrent use;
// Recv must be called from one goroutine.
type Conn struct {
	nc net.Conn
	sc *bufio.Scanner

	mu sync.Mutex
}

// Dial connects to a server at addr.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return NewConn(nc), nil
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn) *Conn {
	sc := bufio.NewScanner(nc)
	sc.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &Conn{nc: nc, sc: sc}
}

// Send writes one request frame.
func (c *Conn) Send(req v1.Request) error {
	b, err := v1.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("client: encode %s: %w", req.Kind(), err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.nc.Write(b); err != nil {
		return fmt.Errorf("client: send %s: %w", req.Kind(), err)
	}
	return nil
}

// ErrClosed is returned by Recv once the server has closed the connection.
var ErrClosed = errors.New("client: connection closed by server")

// Recv reads the next response frame, skipping blank lines.
func (c *Conn) Recv() (v1.Response, error) {
	for c.sc.Scan() {
		line := c.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		r, err := v1.DecodeResponse(line)
		if err != nil {
			return nil, fmt.Errorf("client: decode: %w", err)
		}
		return r, nil
	}
	if err := c.sc.Err(); err != nil {
		return nil, fmt.Errorf("client: read: %w", err)
	}
	return nil, ErrClosed
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.nc.Close() }
