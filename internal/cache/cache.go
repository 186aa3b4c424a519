// Package cache keeps vendor lists between runs so repeated queries for the
// same service skip the backend.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
)

type VendorCache interface {
	// Get reports whether a fresh list is cached for the service.
	Get(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, bool, error)
	Set(ctx context.Context, categoryID, serviceID string, vendors []models.Vendor) error
}

func key(categoryID, serviceID string) string {
	return "vendors:" + categoryID + ":" + serviceID
}

type entry struct {
	vendors []models.Vendor
	expires time.Time
}

// MemoryVendorCache is a process-local VendorCache.
type MemoryVendorCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemoryVendorCache(ttl time.Duration, now func() time.Time) *MemoryVendorCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryVendorCache{ttl: ttl, now: now, entries: make(map[string]entry)}
}

func (c *MemoryVendorCache) Get(_ context.Context, categoryID, serviceID string) ([]models.Vendor, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(categoryID, serviceID)
	e, ok := c.entries[k]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, k)
		return nil, false, nil
	}
	return append([]models.Vendor(nil), e.vendors...), true, nil
}

func (c *MemoryVendorCache) Set(_ context.Context, categoryID, serviceID string, vendors []models.Vendor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(categoryID, serviceID)] = entry{
		vendors: append([]models.Vendor(nil), vendors...),
		expires: c.now().Add(c.ttl),
	}
	return nil
}
