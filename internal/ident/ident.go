// Package ident issues record ids. Ids are decimal millisecond timestamps,
// the format the browser version of the app wrote, but a generator never
// hands out the same or a smaller value twice.
package ident

import (
	"strconv"
	"sync"
	"time"
)

type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Next returns an id strictly greater than every id issued or observed so far.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}

// Observe records an id that already exists (loaded or imported) so later
// ids do not collide with it. Non-numeric ids are ignored.
func (g *Generator) Observe(id string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if n > g.last {
		g.last = n
	}
	g.mu.Unlock()
}
