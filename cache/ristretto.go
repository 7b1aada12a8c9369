package cache

import (
	"github.com/dgraph-io/ristretto"

	"github.com/credview/credview/types"
)

// ristrettoCache is the high-volume backend. Admission is probabilistic,
// so a record written under memory pressure may be dropped rather than
// stored; consumers already tolerate absent records, so this trades
// completeness for bounded memory the same way the kernel-side map does.
type ristrettoCache struct {
	cache *ristretto.Cache
}

var _ JoinedInfoCache = (*ristrettoCache)(nil)

// NewRistrettoCache creates a Ristretto-backed cache holding up to
// maxEntries records
func NewRistrettoCache(maxEntries int64) (JoinedInfoCache, error) {
	if maxEntries <= 0 {
		maxEntries = 32768
	}
	cfg := &ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		Metrics:     true,
	}

	cache, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return &ristrettoCache{cache: cache}, nil
}

func (c *ristrettoCache) Set(tid uint64, info *types.ExecInfo) {
	c.cache.Set(tid, *info, 1)
	// Flush the set buffer so a consumer keyed on the same invocation
	// observes the record
	c.cache.Wait()
}

func (c *ristrettoCache) Get(tid uint64) (types.ExecInfo, bool) {
	value, found := c.cache.Get(tid)
	if !found {
		return types.ExecInfo{}, false
	}
	info, ok := value.(types.ExecInfo)
	return info, ok
}

func (c *ristrettoCache) Delete(tid uint64) {
	c.cache.Del(tid)
}

func (c *ristrettoCache) Len() int {
	return int(c.cache.Metrics.KeysAdded() - c.cache.Metrics.KeysEvicted())
}

func (c *ristrettoCache) Close() {
	c.cache.Close()
}
