package scratch

import (
	"testing"

	"github.com/credview/credview/types"
)

func TestAcquireBounds(t *testing.T) {
	pool := NewPool(4)

	tests := []struct {
		name   string
		worker int
		wantOK bool
	}{
		{name: "first worker", worker: 0, wantOK: true},
		{name: "last worker", worker: 3, wantOK: true},
		{name: "out of range", worker: 4, wantOK: false},
		{name: "negative", worker: -1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := pool.Acquire(tt.worker)
			if (region != nil) != tt.wantOK {
				t.Errorf("Acquire(%d) = %v, want ok=%v", tt.worker, region, tt.wantOK)
			}
		})
	}
}

func TestAcquireZeroesRegion(t *testing.T) {
	pool := NewPool(2)

	region := pool.Acquire(1)
	region.Info.IsSet = true
	region.Info.SecureExec = types.ExecSetuid | types.ExecSetgid
	region.Info.Inode.Ino = 99
	region.Info.Inode.Nlink = 3
	region.Info.Mount.Dev = 2049
	types.CopyFsType(&region.Info.Mount.FsType, "ext4")

	// Reacquisition must not leak any field from the previous invocation
	again := pool.Acquire(1)
	if again != region {
		t.Fatal("worker slot was reallocated instead of reused")
	}
	if again.Info != (types.ExecInfo{}) {
		t.Errorf("Acquire() returned dirty region: %+v", again.Info)
	}
}

func TestRegionsAreDistinct(t *testing.T) {
	pool := NewPool(2)

	a := pool.Acquire(0)
	b := pool.Acquire(1)
	if a == b {
		t.Fatal("distinct workers share a region")
	}

	a.Info.Inode.Ino = 7
	if b.Info.Inode.Ino != 0 {
		t.Error("write through one worker's region visible in another's")
	}
}

func TestNewPoolMinimumSize(t *testing.T) {
	if got := NewPool(0).Size(); got != 1 {
		t.Errorf("NewPool(0).Size() = %d, want 1", got)
	}
}
