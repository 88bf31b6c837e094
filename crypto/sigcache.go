package crypto

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSignerCacheSize is used when NewSignerCache is given a
// non-positive capacity.
const DefaultSignerCacheSize = 4096

// SignerCacheStats holds hit/miss statistics for a SignerCache.
type SignerCacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// SignerCache memoizes successful signer recoveries, keyed by
// keccak256(digest || sig). The same signed transaction is typically seen
// twice: once when the REST front end validates it and again when the block
// carrying it is executed. Failed recoveries are never cached.
type SignerCache struct {
	entries *lru.Cache[common.Hash, common.Address]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewSignerCache creates a SignerCache holding up to size entries.
func NewSignerCache(size int) *SignerCache {
	if size <= 0 {
		size = DefaultSignerCacheSize
	}
	entries, err := lru.New[common.Hash, common.Address](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &SignerCache{entries: entries}
}

func signerCacheKey(digest common.Hash, sig []byte) common.Hash {
	return Keccak256Hash(digest[:], sig)
}

// Recover returns the signer of sig over digest, consulting the cache first.
// A nil cache recovers directly.
func (c *SignerCache) Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if c == nil {
		return RecoverSigner(digest, sig)
	}
	key := signerCacheKey(digest, sig)
	if addr, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return addr, nil
	}
	c.misses.Add(1)

	addr, err := RecoverSigner(digest, sig)
	if err != nil {
		return common.Address{}, err
	}
	c.entries.Add(key, addr)
	return addr, nil
}

// Len returns the number of cached recoveries.
func (c *SignerCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry and resets the counters.
func (c *SignerCache) Purge() {
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns a snapshot of the cache statistics.
func (c *SignerCache) Stats() SignerCacheStats {
	return SignerCacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}
