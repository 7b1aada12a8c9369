// Package probe implements the committing-creds enrichment hook. It runs
// at the point where an exec installs new credentials on the task: it
// classifies setuid/setgid transitions by comparing the incoming
// credentials against the running task's, captures the identity of the
// backing executable, and caches the result by thread id for the event
// assembler to join with the rest of the exec event.
package probe

import (
	"errors"
	"sync/atomic"

	"github.com/credview/credview/cache"
	"github.com/credview/credview/kernel"
	"github.com/credview/credview/scratch"
	"github.com/credview/credview/types"
)

// Probe holds the per-worker scratch pool and the shared correlation
// cache. One Probe serves all workers; CommittingCreds must not be
// entered concurrently for the same worker id.
type Probe struct {
	pool   *scratch.Pool
	cache  cache.JoinedInfoCache
	logger Logger

	invocations atomic.Uint64
	aborts      atomic.Uint64
	commits     atomic.Uint64
	secureExecs atomic.Uint64
	unlinked    atomic.Uint64
}

// New creates a Probe
func New(cfg Config) (*Probe, error) {
	if cfg.Cache == nil {
		return nil, errors.New("probe requires a correlation cache")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Probe{
		pool:   scratch.NewPool(cfg.Workers),
		cache:  cfg.Cache,
		logger: logger,
	}, nil
}

// CommittingCreds fires when new credentials are about to be finalized
// for the program described by bprm, running as task. It never blocks and
// never surfaces an error: a missing scratch region aborts the whole
// invocation, and any absent kernel object degrades the affected fields
// to zero. A record is cached only when the commit predicate holds.
func (p *Probe) CommittingCreds(worker int, bprm *kernel.Binprm, task *kernel.Task) {
	p.invocations.Add(1)

	region := p.pool.Acquire(worker)
	if region == nil {
		p.aborts.Add(1)
		p.logger.Debug("probe", "no scratch region for worker %d, dropping invocation", worker)
		return
	}
	info := &region.Info

	// A program with no personality flags to clear is not a privileged
	// execution; skip the credential comparison entirely.
	if bprm.PerClear() != 0 {
		euid := bprm.Cred().EUID()
		egid := bprm.Cred().EGID()
		uid := task.Cred().UID()
		gid := task.Cred().GID()

		if euid != uid {
			info.SecureExec |= types.ExecSetuid
		}
		if egid != gid {
			info.SecureExec |= types.ExecSetgid
		}
	}

	inode := bprm.File().Inode()
	info.Inode.Ino = inode.Ino()
	info.Inode.Nlink = inode.Nlink()
	if sb := inode.Superblock(); sb != nil {
		info.Mount.Dev = sb.Dev()
		if fsType := sb.Type(); fsType != nil {
			types.CopyFsType(&info.Mount.FsType, fsType.Name())
		}
	}

	// Cache the entry when a privileged transition was detected or the
	// binary was unlinked while still executing
	if info.SecureExec != 0 || (info.Inode.Nlink == 0 && info.Inode.Ino != 0) {
		info.IsSet = true

		tid := task.PidTgid()
		p.logger.Debug("probe", "caching exec info tid=%d ino=%d links=%d flags=0x%x",
			tid, info.Inode.Ino, info.Inode.Nlink, info.SecureExec)
		p.cache.Set(tid, info)

		p.commits.Add(1)
		if info.SecureExec != 0 {
			p.secureExecs.Add(1)
		} else {
			p.unlinked.Add(1)
		}
	}
}

// Workers returns the number of scratch slots
func (p *Probe) Workers() int {
	return p.pool.Size()
}

// Stats returns a snapshot of the probe counters
func (p *Probe) Stats() Stats {
	return Stats{
		Invocations: p.invocations.Load(),
		Aborts:      p.aborts.Load(),
		Commits:     p.commits.Load(),
		SecureExecs: p.secureExecs.Load(),
		Unlinked:    p.unlinked.Load(),
	}
}
