package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	v1 "ruggine/shared/contracts/chat/v1"
)

// lockedWriter serializes lines written by the receive and input loops.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) println(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.w, s)
}

// Run drives an established session: server frames are rendered to out while input
// lines are parsed and sent. It returns nil after /quit, end of input or ctx
// cancellation (each sends Logout first), and ErrClosed if the server hangs up.
func Run(ctx context.Context, c *Conn, s Session, in *bufio.Scanner, out io.Writer, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	w := &lockedWriter{w: out}
	for _, l := range WelcomeLines(s) {
		w.println(l)
	}

	recvErr := make(chan error, 1)
	go func() {
		for {
			r, err := c.Recv()
			if err != nil {
				recvErr <- err
				return
			}
			w.println(Render(r))
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			select {
			case lines <- in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	logout := func(reason string) error {
		log.Debug("client.logout", "nick", s.Nick, "reason", reason)
		if err := c.Send(v1.Logout{}); err != nil {
			// The server may already be gone; there is nothing left to clean up.
			log.Debug("client.logout.fail", "err", err)
		}
		w.println(s.Nick + " disconnected")
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return logout("interrupted")
		case err := <-recvErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return logout("end of input")
			}
			cmd, err := ParseCommand(line, s.Nick)
			if err != nil {
				w.println("[error] " + err.Error())
				continue
			}
			for _, l := range cmd.Output {
				w.println(l)
			}
			if cmd.Quit {
				return logout("quit")
			}
			if cmd.Request == nil {
				continue
			}
			if err := c.Send(cmd.Request); err != nil {
				return err
			}
		}
	}
}
