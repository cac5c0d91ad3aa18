// Package app wires the ruggine server runtime: config, logging, the chat listener,
// the admin HTTP server, the audit trail and the resource logger.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ruggine/cmd/internal/audit"
	"ruggine/cmd/internal/chat"
	"ruggine/cmd/internal/resmon"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App is the ruggine server runtime.
type App struct {
	cfg Config
	log Logger

	reg     *prometheus.Registry
	store   *chat.Store
	metrics *chat.Metrics
	chat    *chat.Server
	ws      *chat.WSGateway

	dbPool   *pgxpool.Pool
	recorder *audit.Recorder
	monitor  *resmon.Monitor
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st := chat.NewStore(nil)
	metrics := chat.NewMetrics(reg, st)

	sink, pool, err := newAuditSink(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	recorder, err := audit.NewRecorder(log, sink,
		audit.WithBuffer(nonZeroInt(cfg.AuditBuffer, 1024)),
		audit.WithDropCounter(metrics.AuditDropped),
	)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	var monitor *resmon.Monitor
	if cfg.ResourceLog != "" {
		monitor, err = resmon.New(log, cfg.ResourceLog, cfg.ResourceInterval)
		if err != nil {
			closePool(pool)
			return nil, err
		}
	}

	srv := chat.NewServer(st, chat.Options{
		Log:     log,
		Metrics: metrics,
		Audit:   recorder,
		Limits:  cfg.chatLimits(),
	})

	var ws *chat.WSGateway
	if cfg.WSEnabled {
		ws = chat.NewWSGateway(log, srv, cfg.WSOrigins)
	}

	return &App{
		cfg:      cfg,
		log:      log,
		reg:      reg,
		store:    st,
		metrics:  metrics,
		chat:     srv,
		ws:       ws,
		dbPool:   pool,
		recorder: recorder,
		monitor:  monitor,
	}, nil
}

// newAuditSink picks Postgres when a database is configured and the log otherwise.
func newAuditSink(ctx context.Context, cfg Config, log Logger) (audit.Sink, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.log_audit")
		return audit.NewLogSink(log), nil, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	sink, err := audit.NewPostgresSink(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := sink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db: ensure audit schema: %w", err)
	}

	log.Info("db.enabled.postgres_audit")
	return sink, pool, nil
}

func closePool(p *pgxpool.Pool) {
	if p != nil {
		p.Close()
	}
}

// Handler returns the admin HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.reg, a.dbPool, a.ws)
	return WithRequestLogging(mux, a.log)
}

// Run binds the listeners and serves until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	defer closePool(a.dbPool)

	ln, err := net.Listen("tcp", a.cfg.Bind)
	if err != nil {
		return fmt.Errorf("bind %s: %w", a.cfg.Bind, err)
	}

	var httpLn net.Listener
	if a.cfg.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", a.cfg.HTTPAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("bind %s: %w", a.cfg.HTTPAddr, err)
		}
	}

	return a.serve(ctx, ln, httpLn)
}

// serve owns ln and httpLn (which may be nil). The audit worker outlives the other
// components so the departures recorded during shutdown still reach the sink.
func (a *App) serve(ctx context.Context, ln, httpLn net.Listener) error {
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAudit()
	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		_ = a.recorder.Run(auditCtx)
	}()

	attrs := []any{"bind", ln.Addr().String(), "ws_enabled", a.ws != nil, "db_enabled", a.dbPool != nil}
	if httpLn != nil {
		attrs = append(attrs, "http_addr", httpLn.Addr().String())
	}
	a.log.Info("server.start", attrs...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.chat.Serve(gctx, ln) })

	if httpLn != nil {
		hs := &http.Server{
			Handler:           a.Handler(),
			ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
			IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
			MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
			// Hijacked WebSocket connections are not tracked by Shutdown; they end with gctx.
			BaseContext: func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			if err := hs.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				a.log.Error("server.shutdown.fail", "err", err)
			}
			return nil
		})
	}

	if a.monitor != nil {
		g.Go(func() error { return a.monitor.Run(gctx) })
	}

	err := g.Wait()

	stopAudit()
	<-auditDone

	if err != nil {
		a.log.Error("server.fail", "err", err)
		return err
	}
	a.log.Info("server.stopped", "audit_dropped", a.recorder.Dropped())
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
