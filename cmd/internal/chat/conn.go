package chat

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	v1 "ruggine/shared/contracts/chat/v1"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Options configures a Server.
type Options struct {
	Log     *slog.Logger
	Metrics *Metrics
	Audit   Auditor
	Limits  Limits
}

// Server runs the line protocol over any net.Conn: TCP from Serve, WebSocket from WSGateway.
type Server struct {
	log     *slog.Logger
	store   *Store
	disp    *Dispatcher
	metrics *Metrics
	limits  Limits
}

// NewServer constructs a Server over st.
func NewServer(st *Store, opts Options) *Server {
	if st == nil {
		st = NewStore(nil)
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	limits := opts.Limits.withDefaults()
	return &Server{
		log:     log,
		store:   st,
		disp:    NewDispatcher(st, log, opts.Metrics, opts.Audit, limits),
		metrics: opts.Metrics,
		limits:  limits,
	}
}

// Store returns the shared state.
func (s *Server) Store() *Store { return s.store }

// ServeConn runs one connection until Logout, disconnect, ctx cancellation or a fatal
// error, and always cleans up the session before returning. Ordinary disconnects
// return nil; anything else is returned wrapped.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	log := s.log.With("conn_id", NewConnID(time.Now().UTC()), "remote", remoteAddr(conn))

	s.metrics.connOpened()
	defer s.metrics.connClosed()
	log.Debug("chat.conn.open")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	out := NewOutbox()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := writeLoop(ctx, conn, out); err != nil {
			log.Debug("chat.write.fail", "err", err)
			out.Close()
			_ = conn.Close()
		}
	}()

	session, reason, err := s.readLoop(ctx, conn, out, log)

	if session != uuid.Nil {
		s.disp.Disconnect(ctx, session, reason, log)
	}
	out.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(writeGrace))
	<-writerDone
	_ = conn.Close()

	log.Debug("chat.conn.closed", "reason", reason)
	return err
}

func (s *Server) readLoop(ctx context.Context, conn net.Conn, out *Outbox, log *slog.Logger) (uuid.UUID, string, error) {
	sc := bufio.NewScanner(conn)
	// The initial capacity must not exceed the limit or the Scanner would use it instead.
	sc.Buffer(make([]byte, 0, min(4096, s.limits.MaxLineBytes)), s.limits.MaxLineBytes)

	rl := NewRateLimiter(s.limits.RateEvents, s.limits.RateWindow)
	caller := Caller{Out: out, Log: log}

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		if !rl.Allow(time.Now().UTC()) {
			out.Push(v1.Error{Reason: "too many requests, slow down"})
			continue
		}

		req, err := v1.DecodeRequest(line)
		if err != nil {
			s.metrics.protocolError()
			log.Debug("chat.read.malformed", "err", err)
			out.Push(v1.Error{Reason: "malformed request: " + err.Error()})
			continue
		}

		res := s.disp.Dispatch(ctx, caller, req)
		caller.ID = res.Session
		if !res.Registered {
			caller.ID = uuid.Nil
		}
		if res.Close {
			return caller.ID, "logout", nil
		}
	}

	err := sc.Err()
	switch {
	case err == nil:
		return caller.ID, "eof", nil
	case errors.Is(err, bufio.ErrTooLong):
		out.Push(v1.Error{Reason: fmt.Sprintf("line too long (max %d bytes)", s.limits.MaxLineBytes)})
		return caller.ID, "line too long", fmt.Errorf("chat: read: line exceeds %d bytes: %w", s.limits.MaxLineBytes, err)
	}
	if ctx.Err() != nil {
		return caller.ID, "shutdown", nil
	}

	switch k := classifyReadErr(err); k {
	case readErrUnknown:
		return caller.ID, "read failed", fmt.Errorf("chat: read: %w", err)
	default:
		return caller.ID, k.String(), nil
	}
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrReset
)

func (k readErrKind) String() string {
	switch k {
	case readErrClose:
		return "peer closed"
	case readErrCtxDone:
		return "context done"
	case readErrConnClosed:
		return "conn closed"
	case readErrReset:
		return "conn reset"
	default:
		return "unknown"
	}
}

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return readErrConnClosed
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return readErrReset
	}
	return readErrUnknown
}

func remoteAddr(c net.Conn) string {
	if a := c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
