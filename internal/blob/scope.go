package blob

import (
	"sync"
)

// A Scope tracks the handles minted through it so they can be released together.
type Scope struct {
	mu       sync.Mutex
	registry *Registry
	handles  map[Handle]struct{}
	closed   bool
}

// NewScope returns a new Scope bound to the registry.
func (r *Registry) NewScope() *Scope {
	return &Scope{
		registry: r,
		handles:  make(map[Handle]struct{}),
	}
}

// Mint registers the payload in the underlying registry and tracks the new handle.
func (s *Scope) Mint(payload []byte, contentType string) Handle {
	h := s.registry.Mint(payload, contentType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.registry.Release(h)
		return h
	}
	s.handles[h] = struct{}{}
	return h
}

// Fetch returns the payload of the given handle.
func (s *Scope) Fetch(h Handle) ([]byte, string, error) {
	return s.registry.Fetch(h)
}

// Release releases the given handle immediately.
func (s *Scope) Release(h Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	s.mu.Unlock()

	s.registry.Release(h)
}

// Len returns the number of handles tracked by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.handles)
}

// Close releases all the tracked handles.
// Handles minted after Close are released right away.
func (s *Scope) Close() error {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[Handle]struct{})
	s.closed = true
	s.mu.Unlock()

	for h := range handles {
		s.registry.Release(h)
	}
	return nil
}
