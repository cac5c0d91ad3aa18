package audit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when RUGGINE_DATABASE_URL is set.

func TestPostgresSink_EnsureSchemaAndWrite(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	t.Cleanup(pool.Close)

	schema := fmt.Sprintf("ruggine_it_%d", time.Now().UnixNano())
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })

	sink, err := NewPostgresSink(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Idempotent.
	if err := sink.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema again: %v", err)
	}

	now := time.Now().UTC()
	batch := []Event{
		{At: now, Action: ActionUserRegistered, SessionID: "s1", Nick: "alice"},
		{At: now, Action: ActionGroupCreated, SessionID: "s1", Nick: "alice", Group: "team"},
	}
	if err := sink.Write(ctx, batch); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var n int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM `+pgIdent(schema, "audit_log")+` WHERE nick = $1`, "alice").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d want=2", n)
	}
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("RUGGINE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: RUGGINE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	c, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		t.Fatalf("acquire: %v", err)
	}
	c.Release()
	return pool
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgx.Identifier{schema}.Sanitize()+` CASCADE`)
}
