// Package logging configures the structured run-level logger and provides
// helpers for logging HTTP and database traffic consistently across the
// harness clients. Per-test debug capture is separate; see framework.Logger.
package logging

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Bodies larger than this are truncated in log output.
const maxLoggedBodyBytes = 1000

// New builds the run-level logger at the given level ("debug", "info",
// "warn", "error"). An empty level means info.
func New(level string) (*zap.SugaredLogger, error) {
	if level == "" {
		level = "info"
	}
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewNop returns a logger that discards everything, for tests and for
// callers that have not set up logging.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// ForTest returns a child logger carrying the test identity, so that all
// client logging during a test can be correlated with it.
func ForTest(logs *zap.SugaredLogger, testName string) *zap.SugaredLogger {
	return logs.With("test", testName)
}

// Request logs an outgoing HTTP request.
func Request(logs *zap.SugaredLogger, method, url string, headers http.Header, body []byte) {
	logs.Infow("request",
		"method", method,
		"url", url,
		"headers", headerSummary(headers),
		"body", Truncate(string(body)),
	)
}

// Response logs an HTTP response and how long the round trip took.
func Response(logs *zap.SugaredLogger, status int, elapsed time.Duration, headers http.Header, body []byte) {
	logs.Infow("response",
		"status", status,
		"elapsed", elapsed,
		"headers", headerSummary(headers),
		"body", Truncate(string(body)),
	)
}

// Query logs a database query before execution.
func Query(logs *zap.SugaredLogger, kind, query string, args []interface{}) {
	logs.Debugw("query", "kind", kind, "query", query, "args", args)
}

// QueryResult logs the outcome of a database query.
func QueryResult(logs *zap.SugaredLogger, kind string, rows int, elapsed time.Duration) {
	logs.Debugw("query result", "kind", kind, "rows", rows, "elapsed", elapsed)
}

// Truncate shortens a body for logging.
func Truncate(s string) string {
	if len(s) <= maxLoggedBodyBytes {
		return s
	}
	return s[:maxLoggedBodyBytes] + "... [truncated]"
}

func headerSummary(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	return out
}
