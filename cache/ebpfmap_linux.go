package cache

import (
	"fmt"

	"github.com/cilium/ebpf"

	"github.com/credview/credview/types"
)

// joinedInfoRecord is the fixed-size wire form of a correlation record,
// laid out for a BPF hash map value so kernel-side programs can share the
// cache.
type joinedInfoRecord struct {
	SecureExec uint32
	IsSet      uint32
	Ino        uint64
	Nlink      uint32
	Dev        uint32
	FsType     [types.FsTypeMax + 1]byte
	_          byte
}

// ebpfMapCache keeps correlation records in a kernel-resident hash map
type ebpfMapCache struct {
	m *ebpf.Map
}

var _ JoinedInfoCache = (*ebpfMapCache)(nil)

func init() {
	newEBPFMapCache = NewEBPFMapCache
}

// NewEBPFMapCache creates a BPF hash map backed cache. This needs
// CAP_BPF (or root) and a kernel with BPF map support.
func NewEBPFMapCache(maxEntries int64) (JoinedInfoCache, error) {
	if maxEntries <= 0 {
		maxEntries = 32768
	}
	m, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "joined_info",
		Type:       ebpf.Hash,
		KeySize:    8,
		ValueSize:  32,
		MaxEntries: uint32(maxEntries),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create joined info map: %v", err)
	}
	return &ebpfMapCache{m: m}, nil
}

func (c *ebpfMapCache) Set(tid uint64, info *types.ExecInfo) {
	rec := joinedInfoRecord{
		SecureExec: info.SecureExec,
		Ino:        info.Inode.Ino,
		Nlink:      info.Inode.Nlink,
		Dev:        info.Mount.Dev,
		FsType:     info.Mount.FsType,
	}
	if info.IsSet {
		rec.IsSet = 1
	}
	// Map update failures (e.g. map full) drop the record silently, the
	// same as any other missed enrichment
	_ = c.m.Put(tid, rec)
}

func (c *ebpfMapCache) Get(tid uint64) (types.ExecInfo, bool) {
	var rec joinedInfoRecord
	if err := c.m.Lookup(tid, &rec); err != nil {
		return types.ExecInfo{}, false
	}
	return types.ExecInfo{
		IsSet:      rec.IsSet != 0,
		SecureExec: rec.SecureExec,
		Inode:      types.MsgInode{Ino: rec.Ino, Nlink: rec.Nlink},
		Mount:      types.MsgMount{Dev: rec.Dev, FsType: rec.FsType},
	}, true
}

func (c *ebpfMapCache) Delete(tid uint64) {
	_ = c.m.Delete(tid)
}

func (c *ebpfMapCache) Len() int {
	var (
		key   uint64
		rec   joinedInfoRecord
		count int
	)
	iter := c.m.Iterate()
	for iter.Next(&key, &rec) {
		count++
	}
	return count
}

func (c *ebpfMapCache) Close() {
	c.m.Close()
}
