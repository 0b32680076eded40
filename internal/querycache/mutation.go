package querycache

import "context"

// Mutation declares the cache footprint of a write operation: a name for
// logs and the key patterns to invalidate once the write succeeds.
type Mutation struct {
	Name        string
	Invalidates []Pattern
}

// Do runs op and, only on success, invalidates the mutation's declared
// patterns. On error the cache is left untouched; no optimistic local state
// exists to roll back, matching the store-confirmation-first write model.
func Do[T any](ctx context.Context, c *Cache, m Mutation, op func(ctx context.Context) (T, error)) (T, error) {
	out, err := op(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if c != nil && len(m.Invalidates) > 0 {
		n := c.Invalidate(m.Invalidates...)
		c.opts.Logger.Debug().Str("mutation", m.Name).Int("entries", n).Msg("mutation invalidated cache")
	}
	return out, nil
}
