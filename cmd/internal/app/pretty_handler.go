package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// keyColors paints the values of well-known attribute keys.
var keyColors = map[string]string{
	"nick":   ansiCyan,
	"target": ansiCyan,
	"from":   ansiCyan,
	"method": ansiCyan,
	"path":   ansiCyan,
	"group":  ansiGreen,
	"err":    ansiRed,
}

// prettyHandler writes one line per record:
//
//	15:04:05.000 INFO  chat.register.ok conn_id=01J... nick=alice src=handlers.go:42
//
// Attributes added through WithAttrs are rendered once and reused.
type prettyHandler struct {
	w         io.Writer
	level     slog.Leveler
	addSource bool
	color     bool

	prefix string // dotted group path, with trailing "."
	preset string // pre-rendered " key=value" pairs

	mu *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, level: slog.LevelInfo, color: color, mu: &sync.Mutex{}}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.addSource = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(h.paint(ansiDim, ts.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(r.Level))
	b.WriteByte(' ')
	b.WriteString(h.paint(ansiBold, r.Message))
	b.WriteString(h.preset)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})

	if h.addSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" src=")
			b.WriteString(h.paint(ansiDim, filepath.Base(f.File)+":"+strconv.Itoa(f.Line)))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.preset)
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	cp := *h
	cp.preset = b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.prefix = h.prefix + name + "."
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		// An unnamed group inlines its members.
		if key != "" {
			prefix += key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, prefix, ga)
		}
		return
	}
	if key == "" {
		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(h.formatValue(key, a.Value))
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	switch {
	case key == "status" && v.Kind() == slog.KindInt64:
		code := int(v.Int64())
		return h.paint(statusColor(code), strconv.Itoa(code))
	case key == "duration_ms" && v.Kind() == slog.KindInt64:
		ms := v.Int64()
		return h.paint(durationColor(ms), strconv.FormatInt(ms, 10)+"ms")
	}

	s := quoteIfNeeded(plainValue(v))
	if c, ok := keyColors[key]; ok {
		return h.paint(c, s)
	}
	return s
}

func statusColor(code int) string {
	switch {
	case code >= 500:
		return ansiRed
	case code >= 400:
		return ansiYellow
	case code >= 300:
		return ansiCyan
	default:
		return ansiGreen
	}
}

func durationColor(ms int64) string {
	switch {
	case ms >= 1000:
		return ansiRed
	case ms >= 250:
		return ansiYellow
	default:
		return ansiDim
	}
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// levelLabel pads to five columns so messages line up.
func (h *prettyHandler) levelLabel(l slog.Level) string {
	label, c := "INFO ", ansiBlue
	switch {
	case l >= slog.LevelError:
		label, c = "ERROR", ansiRed
	case l >= slog.LevelWarn:
		label, c = "WARN ", ansiYellow
	case l < slog.LevelInfo:
		label, c = "DEBUG", ansiMagenta
	}
	return h.paint(c, label)
}

func (h *prettyHandler) paint(code, s string) string {
	if !h.color || code == "" {
		return s
	}
	return code + s + ansiReset
}
