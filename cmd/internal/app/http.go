package app

import (
	"fmt"
	"net/http"
	"time"

	"ruggine/cmd/internal/chat"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerHTTP mounts the admin routes. dbPool and ws may be nil.
func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	gatherer prometheus.Gatherer,
	dbPool *pgxpool.Pool,
	ws *chat.WSGateway,
) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slogErrorLog{log},
	}))

	if ws != nil {
		mux.Handle("GET /ws", ws)
	}
}

// slogErrorLog adapts slog to promhttp.Logger.
type slogErrorLog struct{ log Logger }

func (l slogErrorLog) Println(v ...any) {
	l.log.Error("http.metrics.fail", "err", fmt.Sprint(v...))
}
