// Package event provides typed publish/subscribe feeds with explicit unsubscribe.
package event

import "sync"

type subscription[T any] struct {
	id      uint64
	handler func(T)
}

// Feed delivers published values of one type to its subscribers, in subscription order.
// The zero value is ready to use.
type Feed[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription[T]
	closed bool
}

// Subscribe registers handler and returns the function that removes it.
// Subscribing to a closed feed registers nothing.
func (f *Feed[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || handler == nil {
		return func() {}
	}

	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscription[T]{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, s := range f.subs {
		if s.id == id {
			f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber with v on the calling goroutine.
// Handlers run outside the feed's lock and may unsubscribe themselves.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	subs := make([]subscription[T], len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		s.handler(v)
	}
}

// Close removes every subscriber. Later publishes and subscribes are no-ops.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.subs = nil
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.subs)
}
