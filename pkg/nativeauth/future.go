package nativeauth

import (
	"context"
	"sync"
)

// Dispatcher runs callbacks one at a time on a single goroutine, in the
// order they were dispatched. Applications with a UI loop can drain it
// from there; everyone else can ignore it.
type Dispatcher struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// NewDispatcher starts a dispatcher with room for buffer pending callbacks
// before its queue grows.
func NewDispatcher(buffer int) *Dispatcher {
	d := &Dispatcher{
		pending: make([]func(), 0, max(buffer, 0)),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.done:
			// Close rejects new callbacks before done closes, so this
			// drain sees everything Dispatch accepted.
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Dispatch queues fn and reports whether it was accepted. Accepted
// callbacks always run; after Close nothing is accepted.
func (d *Dispatcher) Dispatch(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting callbacks. Callbacks already queued still run.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
	})
}

// Future is the result of an asynchronous call. It resolves exactly once.
type Future[T any] struct {
	once       sync.Once
	done       chan struct{}
	value      T
	err        error
	dispatcher *Dispatcher
}

func newFuture[T any](d *Dispatcher) *Future[T] {
	return &Future[T]{done: make(chan struct{}), dispatcher: d}
}

// async runs fn on a new goroutine and resolves the returned future with
// its result.
func async[T any](d *Dispatcher, fn func() (T, error)) *Future[T] {
	f := newFuture[T](d)
	go func() {
		v, err := fn()
		f.resolve(v, err)
	}()
	return f
}

// resolve stores the result. Only the first call has any effect.
func (f *Future[T]) resolve(v T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete calls fn with the result on the dispatcher goroutine, never on
// the goroutine that did the work. Once the dispatcher is closed fn runs on
// a goroutine of its own instead, so it is always called exactly once.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	go func() {
		<-f.done
		deliver := func() { fn(f.value, f.err) }
		if !f.dispatcher.Dispatch(deliver) {
			deliver()
		}
	}()
}
