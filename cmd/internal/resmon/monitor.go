// Package resmon appends the server's own CPU usage and run time to a log file at a fixed period.
package resmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	DefaultInterval = 2 * time.Minute
	DefaultPath     = "server_cpu.log"
)

// sampler is the subset of *process.Process the monitor reads.
type sampler interface {
	Percent(interval time.Duration) (float64, error)
	CreateTime() (int64, error)
}

// Monitor samples one process.
type Monitor struct {
	log      *slog.Logger
	path     string
	interval time.Duration

	proc sampler
	now  func() time.Time
}

// New builds a Monitor for the current process.
func New(log *slog.Logger, path string, interval time.Duration) (*Monitor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("resmon: empty path")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("resmon: open process: %w", err)
	}
	return &Monitor{log: log, path: path, interval: interval, proc: p, now: time.Now}, nil
}

// Run writes one line per interval until ctx is done. Sampling or write failures are
// logged and do not stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	// Prime the CPU delta so the first line covers one interval.
	_, _ = m.proc.Percent(0)

	t := time.NewTicker(m.interval)
	defer t.Stop()

	m.log.Info("resmon.start", "path", m.path, "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := m.tick(); err != nil {
				m.log.Warn("resmon.tick.fail", "err", err)
			}
		}
	}
}

func (m *Monitor) tick() error {
	line, err := m.sample()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (m *Monitor) sample() (string, error) {
	cpu, err := m.proc.Percent(0)
	if err != nil {
		return "", fmt.Errorf("cpu percent: %w", err)
	}
	created, err := m.proc.CreateTime()
	if err != nil {
		return "", fmt.Errorf("create time: %w", err)
	}
	now := m.now()
	runMin := int64(now.Sub(time.UnixMilli(created)) / time.Minute)
	return formatLine(now, cpu, runMin), nil
}

// formatLine renders "[YYYY-MM-DD HH:MM:SS] CPU: %7.2f% | Run Time: %3d min" with a
// decimal comma, so columns stay aligned across lines.
func formatLine(ts time.Time, cpu float64, runMin int64) string {
	cpuStr := strings.Replace(fmt.Sprintf("%7.2f", cpu), ".", ",", 1)
	return fmt.Sprintf("[%s] CPU: %s%% | Run Time: %3d min\n", ts.Format(time.DateTime), cpuStr, max(runMin, 0))
}
