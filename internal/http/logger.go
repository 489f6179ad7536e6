package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

type logFormatter struct {
	logger zerolog.Logger
}

func (l *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	req := map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	}

	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		req["id"] = reqID
	}

	return &logEntry{
		logger: l.logger,
		req:    req,
	}
}

type logEntry struct {
	logger zerolog.Logger
	req    map[string]interface{}
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.logger.Debug().
		Fields(e.req).
		Int("status", status).
		Int("bytes", bytes).
		Dur("elapsed", elapsed).
		Msg("request complete")
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error().
		Fields(e.req).
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panicked")
}
