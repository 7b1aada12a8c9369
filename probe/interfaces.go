package probe

import (
	"github.com/credview/credview/cache"
)

// Logger interface for best-effort diagnostics
type Logger interface {
	Debug(component, format string, args ...interface{})
	Info(component, format string, args ...interface{})
	Warning(component, format string, args ...interface{})
	Error(component, format string, args ...interface{})
}

// Config for the probe
type Config struct {
	// Number of hook workers; one scratch region is preallocated per
	// worker
	Workers int

	// Correlation cache shared with the event assembler
	Cache cache.JoinedInfoCache

	// Logging (optional)
	Logger Logger
}

// Stats is a snapshot of probe counters
type Stats struct {
	Invocations uint64 // hook entries
	Aborts      uint64 // scratch acquisition failures
	Commits     uint64 // records written to the cache
	SecureExecs uint64 // commits carrying setuid/setgid flags
	Unlinked    uint64 // commits for deleted-but-running binaries
}

// nopLogger discards all diagnostics
type nopLogger struct{}

func (nopLogger) Debug(component, format string, args ...interface{})   {}
func (nopLogger) Info(component, format string, args ...interface{})    {}
func (nopLogger) Warning(component, format string, args ...interface{}) {}
func (nopLogger) Error(component, format string, args ...interface{})   {}
