// Package kernel models the kernel-owned objects the committing-creds
// hook dereferences: the binary program descriptor, its backing file and
// inode, and task credentials. Objects are read-only once built, and every
// accessor tolerates an absent reference by returning the zero value, the
// same way a failed kernel-memory read degrades to zero instead of
// faulting.
package kernel

// Cred is a snapshot of a credential set at a specific instant
type Cred struct {
	uid  uint32
	gid  uint32
	euid uint32
	egid uint32
}

// NewCred builds a credential snapshot
func NewCred(uid, gid, euid, egid uint32) *Cred {
	return &Cred{uid: uid, gid: gid, euid: euid, egid: egid}
}

func (c *Cred) UID() uint32 {
	if c == nil {
		return 0
	}
	return c.uid
}

func (c *Cred) GID() uint32 {
	if c == nil {
		return 0
	}
	return c.gid
}

func (c *Cred) EUID() uint32 {
	if c == nil {
		return 0
	}
	return c.euid
}

func (c *Cred) EGID() uint32 {
	if c == nil {
		return 0
	}
	return c.egid
}

// FileSystemType names the filesystem a superblock belongs to
type FileSystemType struct {
	name string
}

func NewFileSystemType(name string) *FileSystemType {
	return &FileSystemType{name: name}
}

func (t *FileSystemType) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// SuperBlock describes the mounted filesystem backing an inode. The type
// reference may be absent.
type SuperBlock struct {
	dev    uint32
	fsType *FileSystemType
}

func NewSuperBlock(dev uint32, fsType *FileSystemType) *SuperBlock {
	return &SuperBlock{dev: dev, fsType: fsType}
}

func (sb *SuperBlock) Dev() uint32 {
	if sb == nil {
		return 0
	}
	return sb.dev
}

func (sb *SuperBlock) Type() *FileSystemType {
	if sb == nil {
		return nil
	}
	return sb.fsType
}

// Inode identifies an on-disk object. A link count of zero on a live
// executable means the binary was unlinked while still running.
type Inode struct {
	ino   uint64
	nlink uint32
	sb    *SuperBlock
}

func NewInode(ino uint64, nlink uint32, sb *SuperBlock) *Inode {
	return &Inode{ino: ino, nlink: nlink, sb: sb}
}

func (i *Inode) Ino() uint64 {
	if i == nil {
		return 0
	}
	return i.ino
}

func (i *Inode) Nlink() uint32 {
	if i == nil {
		return 0
	}
	return i.nlink
}

func (i *Inode) Superblock() *SuperBlock {
	if i == nil {
		return nil
	}
	return i.sb
}

// File is the executable image being loaded
type File struct {
	inode *Inode
}

func NewFile(inode *Inode) *File {
	return &File{inode: inode}
}

func (f *File) Inode() *Inode {
	if f == nil {
		return nil
	}
	return f.inode
}

// Binprm describes the in-progress program load at the moment new
// credentials are committed to the task. PerClear holds the personality
// flags to clear for this exec; a nonzero value signals a privileged
// transition.
type Binprm struct {
	perClear uint32
	cred     *Cred
	file     *File
}

func NewBinprm(perClear uint32, cred *Cred, file *File) *Binprm {
	return &Binprm{perClear: perClear, cred: cred, file: file}
}

func (b *Binprm) PerClear() uint32 {
	if b == nil {
		return 0
	}
	return b.perClear
}

func (b *Binprm) Cred() *Cred {
	if b == nil {
		return nil
	}
	return b.cred
}

func (b *Binprm) File() *File {
	if b == nil {
		return nil
	}
	return b.file
}

// Task is the process the exec is committing credentials to
type Task struct {
	pid  uint32
	tgid uint32
	cred *Cred
}

func NewTask(pid, tgid uint32, cred *Cred) *Task {
	return &Task{pid: pid, tgid: tgid, cred: cred}
}

func (t *Task) PID() uint32 {
	if t == nil {
		return 0
	}
	return t.pid
}

func (t *Task) TGID() uint32 {
	if t == nil {
		return 0
	}
	return t.tgid
}

func (t *Task) Cred() *Cred {
	if t == nil {
		return nil
	}
	return t.cred
}

// PidTgid composes the thread id used to key correlation records, with
// the thread group id in the upper half. Identifier reuse across execs is
// possible and makes same-key cache overwrites an acknowledged race.
func (t *Task) PidTgid() uint64 {
	if t == nil {
		return 0
	}
	return uint64(t.tgid)<<32 | uint64(t.pid)
}
