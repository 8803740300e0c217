package archive

import "github.com/roach88/dbarchive/internal/schema"

// identityCache maps live objects to their storage identifier. It is keyed
// by the object's handle and holds no reference to the object itself.
// Entries disappear when the object is destroyed.
type identityCache struct {
	ids     map[schema.Handle]int64
	watcher *cacheWatcher
}

// cacheWatcher is the observer the cached objects hold. Objects keep it
// after the cache is cleared, so it is cut loose from the cache then and
// only this struct stays reachable from them.
type cacheWatcher struct {
	cache *identityCache
}

// ObjectDestroyed implements schema.Observer.
func (w *cacheWatcher) ObjectDestroyed(obj schema.Object) {
	if w.cache != nil {
		w.cache.forget(obj.Handle())
	}
}

func newIdentityCache() *identityCache {
	c := &identityCache{ids: make(map[schema.Handle]int64)}
	c.watcher = &cacheWatcher{cache: c}
	return c
}

func (c *identityCache) get(obj schema.Object) (int64, bool) {
	id, ok := c.ids[obj.Handle()]
	return id, ok
}

func (c *identityCache) register(obj schema.Object, id int64) {
	h := obj.Handle()
	if _, ok := c.ids[h]; !ok {
		metricIdentityCache.Inc()
	}
	c.ids[h] = id
	schema.Observe(obj, c.watcher)
}

func (c *identityCache) evict(obj schema.Object) {
	c.forget(obj.Handle())
	schema.Unobserve(obj, c.watcher)
}

func (c *identityCache) forget(h schema.Handle) {
	if _, ok := c.ids[h]; ok {
		delete(c.ids, h)
		metricIdentityCache.Dec()
	}
}

func (c *identityCache) size() int {
	return len(c.ids)
}

// clear drops all entries. Objects cached so far still hold the old
// watcher, which no longer reaches the cache.
func (c *identityCache) clear() {
	metricIdentityCache.Sub(float64(len(c.ids)))
	c.ids = make(map[schema.Handle]int64)
	c.watcher.cache = nil
	c.watcher = &cacheWatcher{cache: c}
}
