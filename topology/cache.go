// Package topology caches the directory's collection-to-cluster and
// cluster-to-host mappings, and selects a host within a cluster's ring.
// CollectionCache and ClusterCache mirror the source's known_collections
// (an LRUCache) and known_clusters (an unbounded dict), but typed and
// safe for concurrent use by many goroutines instead of gevent's
// single-threaded greenlets.
package topology

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// collectionState tags a CollectionCache entry so a cache hit can report
// "known absent" (no such collection) without being confused with "never
// asked": a plain map[string]int64 cannot make that distinction without a
// sentinel value, which risks colliding with a real cluster id.
type collectionState int

const (
	collectionVacant collectionState = iota
	collectionPresent
	collectionAbsent
)

type collectionEntry struct {
	state collectionState
	id    int64
}

// CollectionCache is a bounded, concurrency-safe cache of collection name
// to owning cluster id, including negative (absent) results, so a
// nonexistent collection doesn't re-query the directory on every request.
type CollectionCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, collectionEntry]
}

// NewCollectionCache builds a CollectionCache holding at most capacity
// entries, evicting least-recently-used ones beyond that (spec.md's
// COLLECTION_CACHE_SIZE, renamed CollectionCacheCapacity).
func NewCollectionCache(capacity int) *CollectionCache {
	c, err := lru.New[string, collectionEntry](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, which config.Validate
		// already rejects before a CollectionCache is ever constructed.
		panic(err)
	}
	return &CollectionCache{lru: c}
}

// Lookup reports a cached cluster id for name, distinguishing a known-
// absent collection (ok=true, found=false) from never having been asked
// (ok=false).
func (c *CollectionCache) Lookup(name string) (id int64, found bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, hit := c.lru.Get(name)
	if !hit || entry.state == collectionVacant {
		return 0, false, false
	}
	if entry.state == collectionAbsent {
		return 0, false, true
	}
	return entry.id, true, true
}

// StorePresent records that name resolves to clusterID.
func (c *CollectionCache) StorePresent(name string, clusterID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(name, collectionEntry{state: collectionPresent, id: clusterID})
}

// StoreAbsent records that no collection named name exists.
func (c *CollectionCache) StoreAbsent(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(name, collectionEntry{state: collectionAbsent})
}

// ClusterCache caches cluster id to *Cluster. It is unbounded, like the
// source's known_clusters dict: the number of clusters in a deployment is
// orders of magnitude smaller than the number of collections, so eviction
// isn't worth the complexity.
type ClusterCache struct {
	mu       sync.RWMutex
	clusters map[int64]*Cluster
}

// NewClusterCache returns an empty ClusterCache.
func NewClusterCache() *ClusterCache {
	return &ClusterCache{clusters: make(map[int64]*Cluster)}
}

// Lookup returns the cached *Cluster for id, if any.
func (c *ClusterCache) Lookup(id int64) (*Cluster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.clusters[id]
	return cl, ok
}

// Store records cl under its cluster id.
func (c *ClusterCache) Store(cl *Cluster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clusters[cl.ID] = cl
}
