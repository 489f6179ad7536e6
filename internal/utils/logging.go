package utils

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type LogWriterCtx struct {
	logger zerolog.Logger
}

// LogWriter adapts a zerolog logger to io.Writer, so subprocess stderr can be
// piped into structured logs line by line.
func LogWriter(l zerolog.Logger) *LogWriterCtx {
	return &LogWriterCtx{
		logger: l,
	}
}

func (l LogWriterCtx) Write(p []byte) (n int, err error) {
	l.logger.Warn().Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

// LogTail keeps the most recent lines written to it, so a process failure can
// be reported with the diagnostics that preceded it.
type LogTailCtx struct {
	mu    sync.Mutex
	lines []string
	limit int
}

func LogTail(limit int) *LogTailCtx {
	return &LogTailCtx{limit: limit}
}

func (l *LogTailCtx) Write(p []byte) (n int, err error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}

	l.mu.Lock()
	l.lines = append(l.lines, line)
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	l.mu.Unlock()

	return len(p), nil
}

func (l *LogTailCtx) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return strings.Join(l.lines, "\n")
}
