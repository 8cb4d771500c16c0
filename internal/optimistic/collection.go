package optimistic

import "sync"

// Keyed is a record that can be addressed by identifier inside a collection.
type Keyed interface {
	Key() string
}

// Change is the collection after one write. Version grows with every write;
// listeners may receive changes out of order and should keep the highest.
type Change[T Keyed] struct {
	Version uint64
	Items   []T
}

// Collection is the client-side ordered copy of a server list. Readers get
// snapshots; only the controller writes.
type Collection[T Keyed] struct {
	mu        sync.RWMutex
	items     []T
	version   uint64
	listeners []func(Change[T])
}

func NewCollection[T Keyed](items ...T) *Collection[T] {
	c := &Collection[T]{}
	c.items = append(c.items, items...)
	return c
}

// OnChange registers fn to receive every later change. fn runs on the writing
// goroutine and must not block.
func (c *Collection[T]) OnChange(fn func(Change[T])) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Replace swaps the whole collection, typically with a fresh server fetch.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = append(c.items[:0:0], items...)
	ch, listeners := c.commit()
	c.mu.Unlock()
	notify(listeners, ch)
}

// update applies fn to the record under id and returns the new value.
func (c *Collection[T]) update(id string, fn func(T) T) (T, bool) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	c.items[i] = fn(c.items[i])
	v := c.items[i]
	ch, listeners := c.commit()
	c.mu.Unlock()
	notify(listeners, ch)
	return v, true
}

// remove drops the record under id and reports where it was.
func (c *Collection[T]) remove(id string) (T, int, bool) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		var zero T
		return zero, -1, false
	}
	v := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	ch, listeners := c.commit()
	c.mu.Unlock()
	notify(listeners, ch)
	return v, i, true
}

// restore puts v back: in place when the id is present, otherwise at index
// (clamped to the current length).
func (c *Collection[T]) restore(v T, index int) {
	c.mu.Lock()
	if i := c.indexOf(v.Key()); i >= 0 {
		c.items[i] = v
	} else {
		if index < 0 || index > len(c.items) {
			index = len(c.items)
		}
		c.items = append(c.items, v)
		copy(c.items[index+1:], c.items[index:])
		c.items[index] = v
	}
	ch, listeners := c.commit()
	c.mu.Unlock()
	notify(listeners, ch)
}

func (c *Collection[T]) indexOf(id string) int {
	for i, item := range c.items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}

// commit bumps the version; the caller holds the write lock. The snapshot is
// only taken when someone listens.
func (c *Collection[T]) commit() (Change[T], []func(Change[T])) {
	c.version++
	if len(c.listeners) == 0 {
		return Change[T]{}, nil
	}
	items := make([]T, len(c.items))
	copy(items, c.items)
	return Change[T]{Version: c.version, Items: items}, c.listeners
}

func notify[T Keyed](listeners []func(Change[T]), ch Change[T]) {
	for _, fn := range listeners {
		fn(ch)
	}
}
