package resmon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeProc struct {
	cpu     float64
	created time.Time
}

func (f fakeProc) Percent(time.Duration) (float64, error) { return f.cpu, nil }
func (f fakeProc) CreateTime() (int64, error)            { return f.created.UnixMilli(), nil }

func TestFormatLine(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	cases := []struct {
		cpu  float64
		min  int64
		want string
	}{
		{0.05, 3, "[2026-03-04 05:06:07] CPU:    0,05% | Run Time:   3 min\n"},
		{300, 125, "[2026-03-04 05:06:07] CPU:  300,00% | Run Time: 125 min\n"},
		{12.346, -1, "[2026-03-04 05:06:07] CPU:   12,35% | Run Time:   0 min\n"},
	}
	for _, tc := range cases {
		if got := formatLine(ts, tc.cpu, tc.min); got != tc.want {
			t.Fatalf("formatLine(%v,%d)=%q want=%q", tc.cpu, tc.min, got, tc.want)
		}
	}
}

func TestMonitor_TickAppends(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	path := filepath.Join(t.TempDir(), "cpu.log")
	m := &Monitor{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		path:     path,
		interval: time.Hour,
		proc:     fakeProc{cpu: 1.5, created: now.Add(-10 * time.Minute)},
		now:      func() time.Time { return now },
	}

	for i := 0; i < 2; i++ {
		if err := m.tick(); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%d want=2: %q", len(lines), b)
	}
	if want := "[2026-03-04 05:06:07] CPU:    1,50% | Run Time:  10 min"; lines[0] != want {
		t.Fatalf("line=%q want=%q", lines[0], want)
	}
}

func TestNew_RejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, " ", 0); err == nil {
		t.Fatalf("expected error")
	}
}
