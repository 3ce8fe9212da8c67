package cache

import (
	"sync"
)

// Cache is a keyed, thread-safe cache. Map calibration data is cached here
// after the first load so repeated map changes never hit disk or the database.
type Cache[K comparable, V any] struct {
	m     sync.RWMutex
	items map[K]V
}

func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.items = make(map[K]V)
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *Cache[K, V]) Set(key K, v V) {
	c.m.Lock()
	defer c.m.Unlock()
	c.items[key] = v
}

func (c *Cache[K, V]) Delete(key K) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.items)
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Concurrent misses for the same key call load once; errors are not cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.m.Lock()
	defer c.m.Unlock()
	if v, ok := c.items[key]; ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.items[key] = v
	return v, nil
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
