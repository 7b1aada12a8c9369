// Package cache implements the correlation cache shared by all hook
// workers. Records are keyed by thread id; a Set for an existing key
// replaces the whole record. Concurrent writers to the same key race with
// last-write-wins semantics, which is acceptable because thread id reuse
// between undrained records is an acknowledged loss at this layer.
package cache

import (
	"fmt"
	"sync"

	"github.com/credview/credview/types"
)

// JoinedInfoCache is the keyed store joining the hook's partial
// enrichment data to the fuller event assembled by a downstream consumer.
type JoinedInfoCache interface {
	// Set inserts or fully overwrites the record for a thread id
	Set(tid uint64, info *types.ExecInfo)

	// Get returns a copy of the record for a thread id
	Get(tid uint64) (types.ExecInfo, bool)

	// Delete retires the record for a thread id, if any
	Delete(tid uint64)

	// Len returns the number of live records
	Len() int

	// Close releases any backing resources
	Close()
}

// newEBPFMapCache is wired in on platforms with BPF map support
var newEBPFMapCache func(maxEntries int64) (JoinedInfoCache, error)

// New builds a cache backend by name
func New(backend string, maxEntries int64) (JoinedInfoCache, error) {
	switch backend {
	case "memory":
		return NewMemoryCache(), nil
	case "ttl":
		return NewTTLCache(maxEntries, DefaultRecordTTL)
	case "ristretto":
		return NewRistrettoCache(maxEntries)
	case "ebpf":
		if newEBPFMapCache == nil {
			return nil, fmt.Errorf("ebpf cache backend is not supported on this platform")
		}
		return newEBPFMapCache(maxEntries)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// memoryCache is the default deterministic backend
type memoryCache struct {
	mu      sync.RWMutex
	records map[uint64]types.ExecInfo
}

var _ JoinedInfoCache = (*memoryCache)(nil)

// NewMemoryCache creates a plain map-backed cache
func NewMemoryCache() JoinedInfoCache {
	return &memoryCache{records: make(map[uint64]types.ExecInfo)}
}

func (c *memoryCache) Set(tid uint64, info *types.ExecInfo) {
	c.mu.Lock()
	c.records[tid] = *info
	c.mu.Unlock()
}

func (c *memoryCache) Get(tid uint64) (types.ExecInfo, bool) {
	c.mu.RLock()
	info, ok := c.records[tid]
	c.mu.RUnlock()
	return info, ok
}

func (c *memoryCache) Delete(tid uint64) {
	c.mu.Lock()
	delete(c.records, tid)
	c.mu.Unlock()
}

func (c *memoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *memoryCache) Close() {}
