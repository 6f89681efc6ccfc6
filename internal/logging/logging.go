// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Leveled shim over the standard library's log.Logger, grounded on the
// teacher's log.Printf/log.Fatalf idiom (server/hioload.go,
// examples/stest/server/main.go). No third-party logger is imported;
// the teacher never reaches for one across its whole tree.

package logging

import (
	"log"
	"os"
)

// Logger prefixes every line with a component tag, e.g. "[session] ".
type Logger struct {
	std *log.Logger
}

// New constructs a Logger that writes to stderr with component as its
// prefix.
func New(component string) *Logger {
	return &Logger{std: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

// Infof logs an informational line.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("INFO "+format, args...)
}

// Warnf logs a recoverable-condition line.
func (l *Logger) Warnf(format string, args ...any) {
	l.std.Printf("WARN "+format, args...)
}

// Errorf logs a failure the caller is about to handle or surface.
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("ERROR "+format, args...)
}
