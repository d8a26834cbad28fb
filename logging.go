package minllm

import (
	"log/slog"
	"sync"
)

var (
	loggerMu  sync.RWMutex
	pkgLogger *slog.Logger
)

// SetLogger replaces the logger used for the engine's advisory warnings
// (successor overwrite, standalone run with successors, unmatched action).
// Pass nil to revert to slog.Default. Warnings are advisory only; the
// engine never fails because of them.
func SetLogger(l *slog.Logger) {
	loggerMu.Lock()
	pkgLogger = l
	loggerMu.Unlock()
}

func logger() *slog.Logger {
	loggerMu.RLock()
	l := pkgLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	return slog.Default()
}
