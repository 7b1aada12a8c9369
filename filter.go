package main

import (
	"strings"

	"github.com/credview/credview/types"
)

// FilterConfig holds emission filters for committed records
type FilterConfig struct {
	CommandNames   []string // emit only these comms (exact match)
	ExcludeComms   []string // never emit these comms (prefix match)
	OnlyPrivileged bool     // drop deleted-binary-only commits
}

// FilterEngine decides which committed records reach the formatter. The
// hook itself is unfiltered; this only trims the replay output.
type FilterEngine struct {
	config   FilterConfig
	included map[string]struct{}
}

func NewFilterEngine(config FilterConfig) *FilterEngine {
	e := &FilterEngine{config: config}
	if len(config.CommandNames) > 0 {
		e.included = make(map[string]struct{}, len(config.CommandNames))
		for _, comm := range config.CommandNames {
			e.included[comm] = struct{}{}
		}
	}
	return e
}

// ShouldEmit returns false and the rejecting filter name for records the
// output should drop
func (e *FilterEngine) ShouldEmit(event *types.CredCommitEvent) (bool, string) {
	if e.config.OnlyPrivileged && event.Info.SecureExec == 0 {
		return false, "only_privileged"
	}

	for _, prefix := range e.config.ExcludeComms {
		if strings.HasPrefix(event.Comm, prefix) {
			return false, "exclude_comm"
		}
	}

	if e.included != nil {
		if _, ok := e.included[event.Comm]; !ok {
			return false, "comm"
		}
	}
	return true, ""
}
