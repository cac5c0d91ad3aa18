package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = 1 * time.Second
)

// Serve accepts connections on ln until ctx is done, running each one on its own
// goroutine. It closes ln and waits for every connection before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	s.log.Info("chat.listen", "addr", ln.Addr().String())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.log.Warn("chat.accept.retry", "err", err, "backoff", backoff)
				select {
				case <-time.After(backoff):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			return fmt.Errorf("chat: accept: %w", err)
		}
		backoff = 0

		wg.Go(func() {
			if err := s.ServeConn(ctx, conn); err != nil {
				s.log.Warn("chat.conn.error", "remote", remoteAddr(conn), "err", err)
			}
		})
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return acceptBackoffMin
	}
	d *= 2
	if d > acceptBackoffMax {
		d = acceptBackoffMax
	}
	return d
}
