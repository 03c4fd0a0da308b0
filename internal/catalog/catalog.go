// Package catalog assigns dense, stable integer indices to named event fields.
//
// The catalog is built while the fit configuration is resolved and frozen
// afterwards. Every observable and systematic stores the index it resolved
// to, so samples read from different sources line up on the same columns.
package catalog

import (
	"fmt"
	"sync"

	"sxfit/domain/core"
)

// Catalog is an ordered, de-duplicated list of field names; index = position.
type Catalog struct {
	mu     sync.RWMutex
	names  []string
	index  map[string]int
	frozen bool
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// FromNames builds a catalog from names in order, collapsing duplicates.
func FromNames(names ...string) *Catalog {
	c := New()
	for _, n := range names {
		// cannot fail: the catalog is not frozen yet
		_, _ = c.ResolveOrAppend(n)
	}
	return c
}

// ResolveOrAppend returns the index of name, appending it if absent.
func (c *Catalog) ResolveOrAppend(name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[name]; ok {
		return i, nil
	}
	if c.frozen {
		return -1, fmt.Errorf("%w: cannot add %q", core.ErrCatalogFrozen, name)
	}
	c.names = append(c.names, name)
	c.index[name] = len(c.names) - 1
	return len(c.names) - 1, nil
}

// Lookup returns the index of an existing field; it never appends.
func (c *Catalog) Lookup(name string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i, ok := c.index[name]; ok {
		return i, nil
	}
	return -1, core.NewInvalidReferenceError(name, "field catalog")
}

// Name returns the field at index i.
func (c *Catalog) Name(i int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.names[i]
}

// Names returns a copy of the fields in index order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Freeze makes the catalog read-only. Resolving a known name still works.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (c *Catalog) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}
