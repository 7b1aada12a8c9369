package cache

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Velocidex/ttlcache/v2"

	"github.com/credview/credview/types"
)

// DefaultRecordTTL bounds how long an undrained record survives. The
// consumer normally retires records promptly; the TTL only protects
// against consumers that died or thread ids that never reappear.
const DefaultRecordTTL = 5 * time.Minute

// ttlCache expires records the consumer never drained
type ttlCache struct {
	lru *ttlcache.Cache
}

var _ JoinedInfoCache = (*ttlCache)(nil)

// NewTTLCache creates a size- and time-bounded cache
func NewTTLCache(maxEntries int64, ttl time.Duration) (JoinedInfoCache, error) {
	lru := ttlcache.NewCache()
	if err := lru.SetTTL(ttl); err != nil {
		lru.Close()
		return nil, fmt.Errorf("failed to set record TTL: %v", err)
	}
	if maxEntries > 0 {
		lru.SetCacheSizeLimit(int(maxEntries))
	}
	lru.SkipTTLExtensionOnHit(true)
	return &ttlCache{lru: lru}, nil
}

func (c *ttlCache) Set(tid uint64, info *types.ExecInfo) {
	_ = c.lru.Set(tidKey(tid), *info)
}

func (c *ttlCache) Get(tid uint64) (types.ExecInfo, bool) {
	value, err := c.lru.Get(tidKey(tid))
	if err != nil {
		return types.ExecInfo{}, false
	}
	info, ok := value.(types.ExecInfo)
	return info, ok
}

func (c *ttlCache) Delete(tid uint64) {
	_ = c.lru.Remove(tidKey(tid))
}

func (c *ttlCache) Len() int {
	return c.lru.Count()
}

func (c *ttlCache) Close() {
	c.lru.Close()
}

func tidKey(tid uint64) string {
	return strconv.FormatUint(tid, 10)
}
