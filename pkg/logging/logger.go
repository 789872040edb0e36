// Package logging configures zerolog for the connector and hands out
// component-scoped loggers.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used across the module.
const (
	ComponentClient     = "bitrix24-client"
	ComponentPagination = "bitrix24-pagination"
	ComponentCache      = "bitrix24-cache"
	ComponentRateLimit  = "bitrix24-ratelimit"
	ComponentTrigger    = "bitrix24-trigger"
	ComponentNode       = "bitrix24-node"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger derived from the global one with the given
// component name attached.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow detail
//   - Remote method calls (method, http_method, cursor)
//   - Cache hit/miss for option lookups
//   - Best-effort enrichment failures on inbound events
//
// Info: normal operation events
//   - Pagination completed (pages, items)
//   - Event subscriptions bound/unbound
//   - Server startup/shutdown
//
// Warn: conditions that do not stop the operation
//   - Remote API errors returned to the caller
//   - Malformed optional JSON parameters replaced by defaults
//   - Cache errors (fallback to direct request)
//   - Portal cooldown after QUERY_LIMIT_EXCEEDED
//
// Error: conditions requiring attention
//   - Batch aborted on an item failure
//   - Credential resolution failures
//   - Configuration errors
//
// Context Fields:
//   - method: remote method name (e.g. crm.deal.list)
//   - http_method: GET or POST
//   - status: HTTP status code
//   - error_class: remote, transport, decode, rate_limit, auth
//   - error_code: Bitrix24 error code (e.g. INVALID_TOKEN)
//   - portal: base REST URL host
//   - cursor: pagination start offset
//   - resource / operation: catalog entry being executed
//   - item: batch item index
//   - request_id: execution request identifier
