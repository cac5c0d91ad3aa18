// Command ruggine-client is a line-oriented terminal client for the ruggine chat server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ruggine/cmd/internal/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		server = flag.String("server", "127.0.0.1:7000", "server address (host:port)")
		nick   = flag.String("nick", "", "nickname (prompted when empty or rejected)")
		debug  = flag.Bool("debug", false, "log protocol events to stderr")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, *server)
	dialCancel()
	if err != nil {
		return err
	}
	defer c.Close()

	stdin := bufio.NewScanner(os.Stdin)
	prompt := func() (string, error) {
		fmt.Print("nickname: ")
		if !stdin.Scan() {
			if err := stdin.Err(); err != nil {
				return "", err
			}
			return "", errors.New("no nickname given")
		}
		return stdin.Text(), nil
	}

	sess, err := client.Handshake(c, *nick, prompt, os.Stderr)
	if err != nil {
		return err
	}
	log.Debug("client.registered", "nick", sess.Nick, "session_id", sess.ID)

	err = client.Run(ctx, c, sess, stdin, os.Stdout, log)
	if errors.Is(err, client.ErrClosed) {
		fmt.Fprintln(os.Stderr, "server closed the connection")
		return nil
	}
	return err
}
