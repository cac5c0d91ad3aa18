package app

import (
	"time"

	"ruggine/cmd/internal/chat"
	"ruggine/cmd/internal/resmon"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	// Bind is the TCP chat listener address.
	Bind string
	// HTTPAddr serves /healthz, /readyz, /metrics and /ws. Empty disables the admin server.
	HTTPAddr string

	LogLevel  string
	LogFormat string
	LogColor  bool

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	MaxLineBytes    int
	MaxMessageChars int
	RateEvents      int
	RateWindow      time.Duration

	WSEnabled bool
	WSOrigins []string

	// DatabaseURL enables the Postgres audit sink. Empty keeps audit in the log only.
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	AuditBuffer int

	// ResourceLog is the CPU/run-time log file. Empty disables the resource logger.
	ResourceLog      string
	ResourceInterval time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Bind:     EnvString("RUGGINE_BIND", "127.0.0.1:7000"),
		HTTPAddr: EnvOptionalString("RUGGINE_HTTP_ADDR", "127.0.0.1:7080"),

		LogLevel:  EnvString("RUGGINE_LOG_LEVEL", "info"),
		LogFormat: EnvString("RUGGINE_LOG_FORMAT", "json"),
		LogColor:  EnvBool("RUGGINE_LOG_COLOR", false),

		ReadHeaderTimeout: EnvDuration("RUGGINE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		IdleTimeout:       EnvDuration("RUGGINE_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("RUGGINE_HTTP_MAX_HEADER_BYTES", 1<<20),

		MaxLineBytes:    EnvInt("RUGGINE_MAX_LINE_BYTES", chat.DefaultMaxLineBytes),
		MaxMessageChars: EnvInt("RUGGINE_MAX_MESSAGE_CHARS", chat.DefaultMaxMessageChars),
		RateEvents:      EnvInt("RUGGINE_RATE_EVENTS", 0),
		RateWindow:      EnvDuration("RUGGINE_RATE_WINDOW", chat.DefaultRateWindow),

		WSEnabled: EnvBool("RUGGINE_WS_ENABLED", true),
		WSOrigins: EnvCSV("RUGGINE_WS_ORIGINS", "localhost,127.0.0.1"),

		DatabaseURL: EnvString("RUGGINE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("RUGGINE_DB_MAX_CONNS", 4),
		DBMinConns:  EnvInt32("RUGGINE_DB_MIN_CONNS", 0),
		AuditBuffer: EnvInt("RUGGINE_AUDIT_BUFFER", 1024),

		ResourceLog:      EnvOptionalString("RUGGINE_RESOURCE_LOG", resmon.DefaultPath),
		ResourceInterval: EnvDuration("RUGGINE_RESOURCE_INTERVAL", resmon.DefaultInterval),
	}
}

func (c Config) chatLimits() chat.Limits {
	return chat.Limits{
		MaxLineBytes:    c.MaxLineBytes,
		MaxMessageChars: c.MaxMessageChars,
		RateEvents:      c.RateEvents,
		RateWindow:      c.RateWindow,
	}
}
