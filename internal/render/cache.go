package render

// RegionID identifies an independently redrawn area of the screen.
type RegionID string

// Cache remembers the last rendered value of each region so that a tick only
// redraws what changed. A Cache is owned by one component and is not safe for
// concurrent use.
type Cache struct {
	last    map[RegionID]any
	redraws int
}

// NewCache returns an empty cache; every region starts out unknown.
func NewCache() *Cache {
	return &Cache{last: make(map[RegionID]any)}
}

// Update calls draw with v only when v differs from the value last rendered
// for id, then records v. It reports whether a redraw happened.
func Update[T comparable](c *Cache, id RegionID, v T, draw func(T)) bool {
	if prev, ok := c.last[id]; ok {
		if p, same := prev.(T); same && p == v {
			return false
		}
	}
	Force(c, id, v, draw)
	return true
}

// Force redraws id unconditionally and records v as its baseline.
func Force[T comparable](c *Cache, id RegionID, v T, draw func(T)) {
	draw(v)
	c.last[id] = v
	c.redraws++
}

// Last returns the value last rendered for id.
func (c *Cache) Last(id RegionID) (any, bool) {
	v, ok := c.last[id]
	return v, ok
}

// Forget drops the baseline of id so the next Update redraws it.
func (c *Cache) Forget(id RegionID) {
	delete(c.last, id)
}

// Reset forgets every region.
func (c *Cache) Reset() {
	clear(c.last)
}

// Redraws returns the number of draw calls issued through the cache.
func (c *Cache) Redraws() int {
	return c.redraws
}
