package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the schema holding the audit_log table.
const DefaultSchema = "ruggine"

// PostgresSink appends events to <schema>.audit_log.
//
// PostgresSink does NOT own the pool; the caller closes it.
type PostgresSink struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresSink.
type PostgresOption func(*PostgresSink) error

// WithSchema sets the schema (default "ruggine"). It is validated and quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresSink) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("audit: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("audit: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresSink constructs a Postgres-backed Sink.
func NewPostgresSink(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresSink, error) {
	s := &PostgresSink{pool: pool, schema: DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		return nil, errors.New("audit: nil pool")
	}
	return s, nil
}

// EnsureSchema creates the schema and table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{s.schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + pgIdent(s.schema, "audit_log") + ` (
  id         BIGSERIAL PRIMARY KEY,
  at         TIMESTAMPTZ NOT NULL,
  action     TEXT NOT NULL,
  session_id TEXT NOT NULL DEFAULT '',
  nick       TEXT NOT NULL DEFAULT '',
  group_name TEXT NOT NULL DEFAULT '',
  detail     TEXT NOT NULL DEFAULT ''
)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("audit: ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, batch []Event) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q := `INSERT INTO ` + pgIdent(s.schema, "audit_log") +
		` (at, action, session_id, nick, group_name, detail) VALUES ($1, $2, $3, $4, $5, $6)`

	b := &pgx.Batch{}
	for _, e := range batch {
		b.Queue(q, e.At, e.Action, e.SessionID, e.Nick, e.Group, e.Detail)
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("audit: insert %d events: %w", len(batch), err)
	}
	return nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
