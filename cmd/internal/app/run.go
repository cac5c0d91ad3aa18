package app

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Run is the CLI entrypoint used by cmd/ruggine-server.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
func Run(args []string) error {
	cfg, err := parseFlags(LoadConfig(), args, os.Stderr)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}

// parseFlags applies command-line overrides on top of the env config.
func parseFlags(cfg Config, args []string, output io.Writer) (Config, error) {
	fs := flag.NewFlagSet("ruggine-server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Bind, "bind", cfg.Bind, "TCP chat listen address")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "admin HTTP listen address (empty disables)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
