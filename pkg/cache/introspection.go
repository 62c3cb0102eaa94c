package cache

import (
	"github.com/aretw0/introspection"
)

// Stats exposes cache counters for observability.
type Stats struct {
	Name      string `json:"name"`
	TTL       string `json:"ttl"`
	Entries   int    `json:"entries"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Persisted bool   `json:"persisted"`
}

// State implements introspection.Introspectable.
func (c *TTL[V]) State() any {
	return Stats{
		Name:      c.name,
		TTL:       c.ttl.String(),
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Persisted: c.store != nil,
	}
}

// ComponentType implements introspection.Component.
func (c *TTL[V]) ComponentType() string {
	return "cache"
}

var _ introspection.Introspectable = (*TTL[int])(nil)
var _ introspection.Component = (*TTL[int])(nil)
