package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Write(ctx context.Context, batch []Event) error {
	for _, e := range batch {
		s.log.LogAttrs(ctx, slog.LevelInfo, "audit."+e.Action,
			slog.Time("at", e.At),
			slog.String("session_id", e.SessionID),
			slog.String("nick", e.Nick),
			slog.String("group", e.Group),
			slog.String("detail", e.Detail),
		)
	}
	return nil
}
