// Package observe provides a minimal ordered observer list for
// publish-on-change state. Delivery is synchronous: Publish returns only
// after every observer registered at publish time has seen the value, and
// publishes are serialized so observers never see interleaved updates.
package observe

import "sync"

type observer[T any] struct {
	id int
	fn func(T)
}

// Publisher delivers values to registered observers in registration order.
type Publisher[T any] struct {
	mu      sync.Mutex // guards observers and nextID
	deliver sync.Mutex // serializes Publish calls
	nextID  int
	list    []observer[T]
}

// NewPublisher creates an empty publisher.
func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{}
}

// Subscribe registers fn and returns a cancel function that removes it.
// Cancel is safe to call more than once.
func (p *Publisher[T]) Subscribe(fn func(T)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.list = append(p.list, observer[T]{id: id, fn: fn})
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, o := range p.list {
				if o.id == id {
					p.list = append(p.list[:i], p.list[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers v to all current observers in registration order.
func (p *Publisher[T]) Publish(v T) {
	p.mu.Lock()
	snapshot := make([]observer[T], len(p.list))
	copy(snapshot, p.list)
	p.mu.Unlock()

	p.deliver.Lock()
	defer p.deliver.Unlock()
	for _, o := range snapshot {
		o.fn(v)
	}
}

// Len reports the number of registered observers.
func (p *Publisher[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.list)
}
