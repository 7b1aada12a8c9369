package main

import (
	"testing"

	"github.com/credview/credview/types"
)

func commitEvent(comm string, flags uint32) *types.CredCommitEvent {
	return &types.CredCommitEvent{
		Comm: comm,
		Info: types.ExecInfo{IsSet: true, SecureExec: flags},
	}
}

func TestFilterEngine(t *testing.T) {
	tests := []struct {
		name       string
		config     FilterConfig
		event      *types.CredCommitEvent
		wantEmit   bool
		wantFilter string
	}{
		{
			name:     "no filters emits everything",
			config:   FilterConfig{},
			event:    commitEvent("passwd", types.ExecSetuid),
			wantEmit: true,
		},
		{
			name:       "only privileged drops deleted binary commit",
			config:     FilterConfig{OnlyPrivileged: true},
			event:      commitEvent("cat", 0),
			wantEmit:   false,
			wantFilter: "only_privileged",
		},
		{
			name:     "only privileged keeps setgid",
			config:   FilterConfig{OnlyPrivileged: true},
			event:    commitEvent("wall", types.ExecSetgid),
			wantEmit: true,
		},
		{
			name:       "exclude comm prefix",
			config:     FilterConfig{ExcludeComms: []string{"kworker/"}},
			event:      commitEvent("kworker/0:1", types.ExecSetuid),
			wantEmit:   false,
			wantFilter: "exclude_comm",
		},
		{
			name:       "include list misses",
			config:     FilterConfig{CommandNames: []string{"sudo", "su"}},
			event:      commitEvent("passwd", types.ExecSetuid),
			wantEmit:   false,
			wantFilter: "comm",
		},
		{
			name:     "include list hits",
			config:   FilterConfig{CommandNames: []string{"sudo", "su"}},
			event:    commitEvent("sudo", types.ExecSetuid),
			wantEmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewFilterEngine(tt.config)
			emit, filter := engine.ShouldEmit(tt.event)
			if emit != tt.wantEmit {
				t.Errorf("ShouldEmit() = %v, want %v", emit, tt.wantEmit)
			}
			if filter != tt.wantFilter {
				t.Errorf("filter = %q, want %q", filter, tt.wantFilter)
			}
		})
	}
}
