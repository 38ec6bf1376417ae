package observ

import (
	"fmt"
	"strings"
)

// Counters are named totals kept in first-use order, such as graph nodes,
// merges or batch jobs of one compile.
type Counters struct {
	names  []string
	values map[string]int64
}

// NewCounters returns an empty set of counters.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]int64)}
}

// Add increases name by delta, creating it at zero first.
func (c *Counters) Add(name string, delta int64) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] += delta
}

// Set overwrites the value of name.
func (c *Counters) Set(name string, v int64) {
	c.Add(name, v-c.values[name])
}

// Get returns the value of name, or 0 when it was never touched.
func (c *Counters) Get(name string) int64 {
	return c.values[name]
}

// Merge adds every counter of other.
func (c *Counters) Merge(other *Counters) {
	if other == nil {
		return
	}
	for _, n := range other.names {
		c.Add(n, other.values[n])
	}
}

// String renders "name=value" pairs in first-use order.
func (c *Counters) String() string {
	parts := make([]string, 0, len(c.names))
	for _, n := range c.names {
		parts = append(parts, fmt.Sprintf("%s=%d", n, c.values[n]))
	}
	return strings.Join(parts, " ")
}
