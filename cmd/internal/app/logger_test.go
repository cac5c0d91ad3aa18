package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " Debug ", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "WARNING", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewHandler_LevelAndSource(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "warn", "json", false))

	log.Info("chat.conn.open")
	if buf.Len() != 0 {
		t.Fatalf("info emitted at warn level: %q", buf.String())
	}

	log.Warn("chat.conn.error", "err", "boom")
	out := buf.String()
	if !strings.Contains(out, `"msg":"chat.conn.error"`) || !strings.Contains(out, `"source":`) {
		t.Fatalf("out=%q want the warn record with source", out)
	}
}
