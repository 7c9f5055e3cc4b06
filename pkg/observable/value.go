// Package observable provides latest-value cells that readers poll or watch.
package observable

import (
	"sync"
	"sync/atomic"
)

// Value holds the latest value of T. Reads never block and never observe a
// partially written value; every Set replaces the whole value.
type Value[T any] struct {
	current atomic.Pointer[T]

	mu          sync.Mutex
	nextID      uint64
	subscribers map[uint64]func(T)
}

func NewValue[T any](initial T) *Value[T] {
	v := &Value[T]{subscribers: map[uint64]func(T){}}
	v.current.Store(&initial)
	return v
}

// Get returns the latest value.
func (v *Value[T]) Get() T {
	if p := v.current.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Set publishes a new value and notifies subscribers on the caller's
// goroutine.
func (v *Value[T]) Set(next T) {
	v.current.Store(&next)

	v.mu.Lock()
	subscribers := make([]func(T), 0, len(v.subscribers))
	for _, fn := range v.subscribers {
		subscribers = append(subscribers, fn)
	}
	v.mu.Unlock()

	for _, fn := range subscribers {
		fn(next)
	}
}

// Subscribe registers fn for every subsequent Set. The returned func removes
// the registration and is safe to call more than once.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	if v.subscribers == nil {
		v.subscribers = map[uint64]func(T){}
	}
	id := v.nextID
	v.nextID++
	v.subscribers[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subscribers, id)
			v.mu.Unlock()
		})
	}
}
