package config

import (
	"strings"
	"time"

	"github.com/fuchsia74/apiconform/common/env"
)

var (
	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)
	// DebugSQLEnabled toggles per-query SQL logging when DEBUG_SQL=true.
	DebugSQLEnabled = env.Bool("DEBUG_SQL", false)

	// SuiteDir is the directory scanned for suite documents (*.yaml, *.yml, *.json).
	SuiteDir = env.String("SUITE_DIR", "suites")

	// RequestTimeout bounds one buffered request/response exchange. Streaming
	// requests use StreamTimeout instead so slow token emission is not cut off.
	RequestTimeout = time.Second * time.Duration(env.Int("REQUEST_TIMEOUT", 60))
	// StreamTimeout bounds an entire streaming exchange end to end.
	StreamTimeout = time.Second * time.Duration(env.Int("STREAM_TIMEOUT", 300))

	// MaxResponseBodyBytes caps how much of a response body is buffered for
	// validation and evidence gathering.
	MaxResponseBodyBytes = env.Int("MAX_RESPONSE_BODY_BYTES", 1<<20)

	// SuiteConcurrency limits how many suites execute in parallel. Cases
	// within one suite always run sequentially.
	SuiteConcurrency = env.Int("SUITE_CONCURRENCY", 4)

	// ServerPort is the listen port for the results API when serving.
	ServerPort = strings.TrimSpace(env.String("PORT", "3000"))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// SQLDSN selects MySQL (plain DSN) or PostgreSQL (postgres:// prefix).
	// When empty, runs are persisted to SQLite at SQLitePath.
	SQLDSN = strings.TrimSpace(env.String("SQL_DSN", ""))
	// SQLitePath is the SQLite database location used when SQL_DSN is unset.
	SQLitePath = env.String("SQLITE_PATH", "apiconform.db")
	// SQLiteBusyTimeout is passed to the SQLite driver as _busy_timeout.
	SQLiteBusyTimeout = env.Int("SQLITE_BUSY_TIMEOUT", 3000)
)
