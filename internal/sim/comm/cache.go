package comm

// tickScoped memoizes a value for one cache generation. The manager bumps
// the generation whenever robot positions may have changed.
type tickScoped[T any] struct {
	gen   uint64
	valid bool
	value T
}

func (c *tickScoped[T]) get(gen uint64, compute func() T) T {
	if !c.valid || c.gen != gen {
		c.value = compute()
		c.gen = gen
		c.valid = true
	}
	return c.value
}

func (c *tickScoped[T]) invalidate() {
	var zero T
	c.value = zero
	c.valid = false
}
