package kernel

import "testing"

func TestNilSafety(t *testing.T) {
	// Every accessor must yield the zero value on an absent reference,
	// through any depth of missing objects.
	var bprm *Binprm
	if bprm.PerClear() != 0 || bprm.Cred().EUID() != 0 || bprm.File().Inode().Ino() != 0 {
		t.Error("nil Binprm chain did not degrade to zero values")
	}

	file := NewFile(nil)
	if file.Inode().Nlink() != 0 {
		t.Error("nil inode Nlink() != 0")
	}
	if file.Inode().Superblock().Dev() != 0 {
		t.Error("nil superblock Dev() != 0")
	}
	if file.Inode().Superblock().Type().Name() != "" {
		t.Error("nil filesystem type Name() != empty")
	}

	var task *Task
	if task.PidTgid() != 0 || task.Cred().UID() != 0 {
		t.Error("nil Task did not degrade to zero values")
	}
}

func TestInodeWithoutSuperblock(t *testing.T) {
	// A missing superblock is feature absence, not an error
	inode := NewInode(42, 1, nil)
	if inode.Ino() != 42 || inode.Nlink() != 1 {
		t.Errorf("Ino()=%d Nlink()=%d, want 42 and 1", inode.Ino(), inode.Nlink())
	}
	if sb := inode.Superblock(); sb != nil {
		t.Errorf("Superblock() = %v, want nil", sb)
	}
}

func TestPidTgid(t *testing.T) {
	tests := []struct {
		name string
		pid  uint32
		tgid uint32
		want uint64
	}{
		{name: "single threaded", pid: 1234, tgid: 1234, want: 1234<<32 | 1234},
		{name: "thread of group", pid: 1235, tgid: 1234, want: 1234<<32 | 1235},
		{name: "zero", pid: 0, tgid: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(tt.pid, tt.tgid, nil)
			if got := task.PidTgid(); got != tt.want {
				t.Errorf("PidTgid() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestCredSnapshot(t *testing.T) {
	cred := NewCred(1000, 1000, 0, 0)
	if cred.UID() != 1000 || cred.GID() != 1000 {
		t.Errorf("UID()=%d GID()=%d, want 1000/1000", cred.UID(), cred.GID())
	}
	if cred.EUID() != 0 || cred.EGID() != 0 {
		t.Errorf("EUID()=%d EGID()=%d, want 0/0", cred.EUID(), cred.EGID())
	}
}
