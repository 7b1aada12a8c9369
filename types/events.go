package types

import (
	"bytes"
	"time"
)

// Secure exec flag bits, matching the kernel-side encoding
const (
	ExecSetuid = uint32(1) << 0
	ExecSetgid = uint32(1) << 1
)

// FsTypeMax is the number of meaningful characters kept from a filesystem
// type name. The storage slot is one byte larger so the name is always
// null-terminated.
const FsTypeMax = 6

// MsgInode carries the identity of the inode backing an executable
type MsgInode struct {
	Ino   uint64
	Nlink uint32
}

// MsgMount carries the identity of the filesystem the executable lives on
type MsgMount struct {
	Dev    uint32
	FsType [FsTypeMax + 1]byte
}

// ExecInfo is the correlation record staged by the committing-creds hook
// and cached by thread id for the event assembler to pick up. A later
// commit for the same thread id fully replaces the record.
type ExecInfo struct {
	IsSet      bool
	SecureExec uint32
	Inode      MsgInode
	Mount      MsgMount
}

// CredCommitEvent is the enriched form handed to output formatters once
// the event assembler has retired a cached record.
type CredCommitEvent struct {
	Timestamp time.Time
	Worker    int
	TID       uint64
	PID       uint32
	Comm      string
	Info      ExecInfo
}

// CopyFsType copies name into dst, truncating to FsTypeMax characters.
// The destination is always null-terminated and any residual bytes from a
// previous use are cleared.
func CopyFsType(dst *[FsTypeMax + 1]byte, name string) {
	n := copy(dst[:FsTypeMax], name)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// FsTypeString returns the printable filesystem type name
func (m *MsgMount) FsTypeString() string {
	return string(bytes.TrimRight(m.FsType[:], "\x00"))
}

// SecureExecNames expands a secure exec bitmask into readable flag names
func SecureExecNames(flags uint32) []string {
	var names []string
	if flags&ExecSetuid != 0 {
		names = append(names, "setuid")
	}
	if flags&ExecSetgid != 0 {
		names = append(names, "setgid")
	}
	return names
}
