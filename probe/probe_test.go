package probe

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/credview/credview/cache"
	"github.com/credview/credview/kernel"
	"github.com/credview/credview/types"
)

func newTestProbe(t *testing.T, workers int) (*Probe, cache.JoinedInfoCache) {
	t.Helper()
	c := cache.NewMemoryCache()
	p, err := New(Config{Workers: workers, Cache: c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, c
}

// simple exec of a healthy binary: file on ext4, one link
func regularFile(ino uint64, nlink uint32) *kernel.File {
	sb := kernel.NewSuperBlock(2049, kernel.NewFileSystemType("ext4"))
	return kernel.NewFile(kernel.NewInode(ino, nlink, sb))
}

func TestPerClearZeroSkipsCredentialComparison(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	// Credentials differ in every field; with per_clear == 0 none of
	// them may be consulted, so no flags and no commit.
	bprm := kernel.NewBinprm(0, kernel.NewCred(0, 0, 0, 0), regularFile(5, 1))
	task := kernel.NewTask(10, 10, kernel.NewCred(1000, 1000, 1000, 1000))

	p.CommittingCreds(0, bprm, task)

	if _, ok := c.Get(task.PidTgid()); ok {
		t.Error("record committed despite per_clear == 0 and a linked binary")
	}
	if stats := p.Stats(); stats.Commits != 0 || stats.Invocations != 1 {
		t.Errorf("stats = %+v, want 1 invocation and 0 commits", stats)
	}
}

func TestSecureExecFlagCombinations(t *testing.T) {
	tests := []struct {
		name      string
		euid, uid uint32
		egid, gid uint32
		want      uint32
	}{
		{name: "no change", euid: 1000, uid: 1000, egid: 1000, gid: 1000, want: 0},
		{name: "setuid only", euid: 0, uid: 1000, egid: 1000, gid: 1000, want: types.ExecSetuid},
		{name: "setgid only", euid: 1000, uid: 1000, egid: 0, gid: 1000, want: types.ExecSetgid},
		{name: "setuid and setgid", euid: 0, uid: 1000, egid: 0, gid: 1000, want: types.ExecSetuid | types.ExecSetgid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, c := newTestProbe(t, 1)
			defer c.Close()

			bprm := kernel.NewBinprm(1, kernel.NewCred(0, 0, tt.euid, tt.egid), regularFile(5, 1))
			task := kernel.NewTask(20, 20, kernel.NewCred(tt.uid, tt.gid, tt.uid, tt.gid))

			p.CommittingCreds(0, bprm, task)

			info, ok := c.Get(task.PidTgid())
			if tt.want == 0 {
				if ok {
					t.Fatalf("committed with flags 0x%x on an unprivileged exec", info.SecureExec)
				}
				return
			}
			if !ok {
				t.Fatal("no record committed for privileged exec")
			}
			if info.SecureExec != tt.want {
				t.Errorf("SecureExec = 0x%x, want 0x%x", info.SecureExec, tt.want)
			}
			if !info.IsSet {
				t.Error("IsSet not marked on committed record")
			}
		})
	}
}

func TestCommitPredicate(t *testing.T) {
	tests := []struct {
		nlink      uint32
		ino        uint64
		privileged bool
		want       bool
	}{
		{nlink: 0, ino: 0, privileged: false, want: false},
		{nlink: 1, ino: 5, privileged: false, want: false},
		{nlink: 0, ino: 5, privileged: false, want: true},
		{nlink: 1, ino: 5, privileged: true, want: true},
		{nlink: 0, ino: 0, privileged: true, want: true},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("nlink=%d_ino=%d_priv=%v", tt.nlink, tt.ino, tt.privileged)
		t.Run(name, func(t *testing.T) {
			p, c := newTestProbe(t, 1)
			defer c.Close()

			perClear := uint32(0)
			euid := uint32(1000)
			if tt.privileged {
				perClear = 1
				euid = 0
			}
			bprm := kernel.NewBinprm(perClear, kernel.NewCred(0, 0, euid, 1000), regularFile(tt.ino, tt.nlink))
			task := kernel.NewTask(30, 30, kernel.NewCred(1000, 1000, 1000, 1000))

			p.CommittingCreds(0, bprm, task)

			_, ok := c.Get(task.PidTgid())
			if ok != tt.want {
				t.Errorf("committed = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMissingSuperblockIsNotFatal(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	// Unlinked binary with no superblock reference: still commits, with
	// zero device and empty filesystem type
	file := kernel.NewFile(kernel.NewInode(77, 0, nil))
	bprm := kernel.NewBinprm(0, nil, file)
	task := kernel.NewTask(40, 40, kernel.NewCred(1000, 1000, 1000, 1000))

	p.CommittingCreds(0, bprm, task)

	info, ok := c.Get(task.PidTgid())
	if !ok {
		t.Fatal("unlinked binary did not commit")
	}
	if info.Mount.Dev != 0 {
		t.Errorf("Dev = %d, want 0", info.Mount.Dev)
	}
	if got := info.Mount.FsTypeString(); got != "" {
		t.Errorf("FsType = %q, want empty", got)
	}
	if info.Inode.Ino != 77 || info.Inode.Nlink != 0 {
		t.Errorf("inode fields = %+v", info.Inode)
	}
}

func TestMissingFileYieldsZeroIdentity(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	// No backing file at all: identity is all zeroes, so only the
	// privilege flags can force a commit
	bprm := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 0), nil)
	task := kernel.NewTask(50, 50, kernel.NewCred(1000, 1000, 1000, 1000))

	p.CommittingCreds(0, bprm, task)

	info, ok := c.Get(task.PidTgid())
	if !ok {
		t.Fatal("setuid exec with absent file did not commit")
	}
	if info.Inode.Ino != 0 || info.Inode.Nlink != 0 || info.Mount.Dev != 0 {
		t.Errorf("identity fields not zero: %+v", info)
	}
}

func TestFsTypeTruncation(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	longName := strings.Repeat("f", 20)
	sb := kernel.NewSuperBlock(7, kernel.NewFileSystemType(longName))
	file := kernel.NewFile(kernel.NewInode(9, 0, sb))
	bprm := kernel.NewBinprm(0, nil, file)
	task := kernel.NewTask(60, 60, nil)

	p.CommittingCreds(0, bprm, task)

	info, ok := c.Get(task.PidTgid())
	if !ok {
		t.Fatal("no commit")
	}
	if got := info.Mount.FsTypeString(); got != strings.Repeat("f", types.FsTypeMax) {
		t.Errorf("FsType = %q, want %d characters", got, types.FsTypeMax)
	}
	if info.Mount.FsType[types.FsTypeMax] != 0 {
		t.Error("filesystem type name not null-terminated")
	}
}

func TestSecondCommitReplacesFirst(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	task := kernel.NewTask(70, 70, kernel.NewCred(1000, 1000, 1000, 1000))

	// First exec: setuid root binary on ext4
	first := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 1000), regularFile(100, 2))
	p.CommittingCreds(0, first, task)

	// Same thread id execs again: unprivileged but deleted binary, no
	// superblock this time
	second := kernel.NewBinprm(0, nil, kernel.NewFile(kernel.NewInode(200, 0, nil)))
	p.CommittingCreds(0, second, task)

	info, ok := c.Get(task.PidTgid())
	if !ok {
		t.Fatal("record missing after second commit")
	}
	if info.SecureExec != 0 {
		t.Errorf("SecureExec = 0x%x leaked from first record", info.SecureExec)
	}
	if info.Inode.Ino != 200 || info.Inode.Nlink != 0 {
		t.Errorf("inode = %+v, want second exec's identity", info.Inode)
	}
	if info.Mount.Dev != 0 || info.Mount.FsTypeString() != "" {
		t.Errorf("mount = %+v leaked from first record", info.Mount)
	}
}

func TestNonCommitLeavesPriorRecord(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	task := kernel.NewTask(80, 80, kernel.NewCred(1000, 1000, 1000, 1000))

	setuid := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 1000), regularFile(300, 1))
	p.CommittingCreds(0, setuid, task)

	// Plain exec for the same thread id does not commit and must not
	// disturb the cached record either
	plain := kernel.NewBinprm(0, nil, regularFile(301, 1))
	p.CommittingCreds(0, plain, task)

	info, ok := c.Get(task.PidTgid())
	if !ok {
		t.Fatal("prior record was removed by a non-commit invocation")
	}
	if info.Inode.Ino != 300 {
		t.Errorf("Ino = %d, want the first exec's 300", info.Inode.Ino)
	}
}

func TestScratchFailureAborts(t *testing.T) {
	p, c := newTestProbe(t, 2)
	defer c.Close()

	bprm := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 0), regularFile(5, 0))
	task := kernel.NewTask(90, 90, kernel.NewCred(1000, 1000, 1000, 1000))

	p.CommittingCreds(5, bprm, task)

	if _, ok := c.Get(task.PidTgid()); ok {
		t.Error("record committed despite scratch acquisition failure")
	}
	stats := p.Stats()
	if stats.Aborts != 1 || stats.Commits != 0 {
		t.Errorf("stats = %+v, want 1 abort and 0 commits", stats)
	}
}

func TestScratchReuseAcrossInvocations(t *testing.T) {
	p, c := newTestProbe(t, 1)
	defer c.Close()

	// A committing invocation followed by a non-committing one on the
	// same worker: stale staged fields must not leak into the second
	// decision.
	dirty := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 1000), regularFile(1, 1))
	p.CommittingCreds(0, dirty, kernel.NewTask(1, 1, kernel.NewCred(1000, 1000, 1000, 1000)))

	clean := kernel.NewBinprm(0, nil, regularFile(2, 1))
	cleanTask := kernel.NewTask(2, 2, kernel.NewCred(1000, 1000, 1000, 1000))
	p.CommittingCreds(0, clean, cleanTask)

	if _, ok := c.Get(cleanTask.PidTgid()); ok {
		t.Error("stale scratch state caused a spurious commit")
	}
}

func TestParallelWorkers(t *testing.T) {
	const workers = 8
	const execsPerWorker = 200

	p, c := newTestProbe(t, workers)
	defer c.Close()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < execsPerWorker; i++ {
				pid := uint32(w*execsPerWorker + i + 1)
				bprm := kernel.NewBinprm(1, kernel.NewCred(0, 0, 0, 1000), regularFile(uint64(pid), 1))
				task := kernel.NewTask(pid, pid, kernel.NewCred(1000, 1000, 1000, 1000))
				p.CommittingCreds(w, bprm, task)
			}
		}(w)
	}
	wg.Wait()

	if got := c.Len(); got != workers*execsPerWorker {
		t.Errorf("cache holds %d records, want %d", got, workers*execsPerWorker)
	}
	stats := p.Stats()
	if stats.Commits != workers*execsPerWorker || stats.Aborts != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNewRequiresCache(t *testing.T) {
	if _, err := New(Config{Workers: 1}); err == nil {
		t.Error("New without a cache did not fail")
	}
}
