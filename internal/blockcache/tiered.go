package blockcache

import "context"

// Tiered layers a fast cache over a larger, slower one: typically a Sharded
// memory cache over a Disk cache. Gets promote disk hits into memory; sets
// populate both tiers.
type Tiered struct {
	fast Cache
	slow Cache
}

// NewTiered combines two caches into a two-tier hierarchy.
func NewTiered(fast, slow Cache) *Tiered {
	return &Tiered{fast: fast, slow: slow}
}

// Get returns a cached block, promoting slow-tier hits.
func (c *Tiered) Get(ctx context.Context, key Key) ([]byte, bool) {
	if b, ok := c.fast.Get(ctx, key); ok {
		return b, true
	}

	b, ok := c.slow.Get(ctx, key)
	if !ok {
		return nil, false
	}

	c.fast.Set(ctx, key, b)
	return b, true
}

// Set caches a block in both tiers.
func (c *Tiered) Set(ctx context.Context, key Key, b []byte) {
	c.fast.Set(ctx, key, b)
	c.slow.Set(ctx, key, b)
}

// Invalidate removes entries matching the predicate from both tiers.
func (c *Tiered) Invalidate(predicate func(key Key) bool) {
	c.fast.Invalidate(predicate)
	c.slow.Invalidate(predicate)
}

// Close closes both tiers.
func (c *Tiered) Close() error {
	err := c.fast.Close()
	if serr := c.slow.Close(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// Stats returns combined hit/miss counters. A fast-tier miss that the slow
// tier serves counts as one hit and one miss.
func (c *Tiered) Stats() (hits, misses int64) {
	fh, fm := c.fast.Stats()
	sh, sm := c.slow.Stats()
	return fh + sh, fm + sm
}
