package registry

import "sync"

// Guard wraps a value that requires exclusive access for mutation, modelling
// the registry's short-lived-guard contract: callers take the guard, mutate,
// and release before yielding to anything that could block. If the closure
// passed to With panics, the guard is marked poisoned and every subsequent
// call to With on the same guard panics immediately — a poisoned guard is
// fatal, not recoverable, since the value's invariants are no longer trusted.
type Guard[T any] struct {
	mu       sync.Mutex
	value    T
	poisoned bool
}

// NewGuard wraps value for exclusive access.
func NewGuard[T any](value T) *Guard[T] {
	return &Guard[T]{value: value}
}

// With runs fn with exclusive access to the guarded value. fn must not
// suspend (block on I/O, channel receive, or another guard) while holding
// access; the registry's contract disallows it, and this Guard does not
// detect the violation, only enforces mutual exclusion.
func (g *Guard[T]) With(fn func(value *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		panic("registry: guard is poisoned, a prior holder panicked while holding it")
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			panic(r)
		}
	}()

	fn(&g.value)
}
