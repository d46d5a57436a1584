// Package cache keeps recently extracted containers in memory.
//
// The cache is an explicit value passed to the components that use it, there is
// no package level state. Entries are keyed by data type and source identity,
// usually the path of the ROM image, and must be invalidated by whoever writes
// to that source.
package cache

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/container"
	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is used when a non positive capacity is requested.
const DefaultCapacity = 64

// Key identifies a cached container.
type Key struct {
	DataType schema.DataType
	Source   string
}

// Stats are the counters of a cache.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
}

// Cache is a least recently used cache of containers. Cached containers are
// shared between callers and must not be modified.
type Cache struct {
	mu       sync.Mutex
	capacity int
	lruList  *list.List
	items    map[Key]*list.Element
	stats    Stats

	// generation changes on every invalidation, loads that started before
	// are not cached.
	generation uint64
	loads      singleflight.Group
}

type cacheItem struct {
	key       Key
	container *container.Container
}

// New returns a cache holding at most capacity containers.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		lruList:  list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// Get returns the cached container for key.
func (c *Cache) Get(key Key) (*container.Container, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.lruList.MoveToFront(elem)
	return elem.Value.(*cacheItem).container, true
}

// GetOrLoad returns the cached container for key or calls loader and caches
// its result. Loader errors are returned and nothing is cached. The lock is
// not held while loader runs, concurrent calls for the same key share one
// load.
func (c *Cache) GetOrLoad(key Key, loader func() (*container.Container, error)) (*container.Container, error) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.stats.Hits++
		c.lruList.MoveToFront(elem)
		c.mu.Unlock()
		return elem.Value.(*cacheItem).container, nil
	}
	c.stats.Misses++
	generation := c.generation
	c.mu.Unlock()

	v, err, _ := c.loads.Do(key.String(), func() (any, error) {
		cont, err := loader()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == generation {
			c.put(key, cont)
		}
		c.mu.Unlock()
		return cont, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*container.Container), nil
}

// String returns the identity of the key used to deduplicate loads.
func (k Key) String() string {
	return strconv.Itoa(int(k.DataType)) + ":" + k.Source
}

// Put stores a container, replacing an existing entry for the key.
func (c *Cache) Put(key Key, cont *container.Container) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, cont)
}

func (c *Cache) put(key Key, cont *container.Container) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheItem).container = cont
		c.lruList.MoveToFront(elem)
		return
	}
	if c.lruList.Len() >= c.capacity {
		c.evict()
	}
	c.items[key] = c.lruList.PushFront(&cacheItem{key: key, container: cont})
}

func (c *Cache) evict() {
	elem := c.lruList.Back()
	if elem == nil {
		return
	}
	c.lruList.Remove(elem)
	delete(c.items, elem.Value.(*cacheItem).key)
	c.stats.Evictions++
}

// Invalidate drops all entries of a source and returns how many were removed.
func (c *Cache) Invalidate(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	removed := 0
	for e := c.lruList.Front(); e != nil; {
		next := e.Next()
		item := e.Value.(*cacheItem)
		if item.key.Source == source {
			c.lruList.Remove(e)
			delete(c.items, item.key)
			removed++
		}
		e = next
	}
	return removed
}

// Len returns the number of cached containers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lruList.Init()
	c.items = make(map[Key]*list.Element)
}
