// Package scratch provides preallocated per-worker staging regions for
// hook invocations, so a full correlation record never has to live on the
// hook's stack. A region belongs to exactly one worker and each worker
// runs at most one invocation at a time, so no locking is needed.
package scratch

import (
	"github.com/credview/credview/types"
)

// Region is one worker's staging area. The embedded ExecInfo is zeroed on
// every acquisition and is only valid until the invocation returns.
type Region struct {
	Info types.ExecInfo
}

// Pool holds one Region per worker, allocated up front
type Pool struct {
	regions []Region
}

// NewPool builds a pool sized for the given number of workers
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{regions: make([]Region, workers)}
}

// Acquire returns the zeroed region for a worker, or nil when the worker
// has no backing slot. A nil return means the caller must abort without
// producing any state.
func (p *Pool) Acquire(worker int) *Region {
	if p == nil || worker < 0 || worker >= len(p.regions) {
		return nil
	}
	region := &p.regions[worker]
	region.Info = types.ExecInfo{}
	return region
}

// Size returns the number of worker slots
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.regions)
}
