package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

const defaultCleanupInterval = 30 * time.Second

type modeEntry struct {
	mode      document.OperationMode
	expiresAt time.Time
}

// InMemoryModeCache keeps operation modes in a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryModeCache struct {
	mu        sync.RWMutex
	entries   map[string]modeEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryModeCache creates the cache and starts its cleanup goroutine
func NewInMemoryModeCache() *InMemoryModeCache {
	c := &InMemoryModeCache{
		entries:  make(map[string]modeEntry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(defaultCleanupInterval)

	return c
}

// Get returns a copy of the cached mode
func (c *InMemoryModeCache) Get(_ context.Context, key string) (*document.OperationMode, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	mode := e.mode
	return &mode, true, nil
}

// Set stores a copy of mode for ttl
func (c *InMemoryModeCache) Set(_ context.Context, key string, mode *document.OperationMode, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = modeEntry{
		mode:      *mode,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes key
func (c *InMemoryModeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryModeCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryModeCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryModeCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries, expired ones included
func (c *InMemoryModeCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
