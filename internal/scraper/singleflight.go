package scraper

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescer collapses concurrent fetches of the same key into one.
type Coalescer struct {
	group singleflight.Group
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result was handed to more than one caller.
func (c *Coalescer) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := c.group.DoChan(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget lets the next call for key run fn again.
func (c *Coalescer) Forget(key string) {
	c.group.Forget(key)
}
