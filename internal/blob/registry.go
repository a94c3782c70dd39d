// Package blob keeps binary payloads reachable through ephemeral handles.
// Handles live as long as the process and must be minted again from the payload after a restart.
package blob

import (
	"strings"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

const (
	scheme = "blob:"
	// RoutePrefix is the path under which handles are served.
	RoutePrefix = "/blobs/"
)

// ErrReleased is returned when a handle is unknown or has been released.
var ErrReleased = errors.New("blob: handle released")

type (
	// A Handle is an ephemeral reference to a payload.
	Handle string

	// A Registry maps minted handles to their payloads.
	Registry struct {
		mu    sync.RWMutex
		blobs map[Handle]entry
	}

	entry struct {
		payload     []byte
		contentType string
	}
)

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		blobs: make(map[Handle]entry),
	}
}

// ParseHandle returns the handle for the given handle string or handle URL.
func ParseHandle(s string) (Handle, bool) {
	switch {
	case strings.HasPrefix(s, scheme):
		return Handle(s), len(s) > len(scheme)
	case strings.HasPrefix(s, RoutePrefix):
		id := strings.TrimPrefix(s, RoutePrefix)
		return Handle(scheme + id), id != ""
	}
	return "", false
}

// ID returns the identifier part of the handle.
func (h Handle) ID() string {
	return strings.TrimPrefix(string(h), scheme)
}

// URL returns the path a rendering surface can use to fetch the payload.
func (h Handle) URL() string {
	return RoutePrefix + h.ID()
}

// Mint registers the payload and returns a new handle for it.
func (r *Registry) Mint(payload []byte, contentType string) Handle {
	h := Handle(scheme + uuid.Must(uuid.NewV4()).String())

	r.mu.Lock()
	r.blobs[h] = entry{payload: payload, contentType: contentType}
	r.mu.Unlock()

	return h
}

// Fetch returns the payload and its content type for the given handle.
func (r *Registry) Fetch(h Handle) ([]byte, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.blobs[h]
	if !ok {
		return nil, "", ErrReleased
	}
	return e.payload, e.contentType, nil
}

// Release invalidates the handle. Releasing twice is a no-op.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	delete(r.blobs, h)
	r.mu.Unlock()
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.blobs)
}

// ReleaseAll invalidates every live handle and returns how many were released.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.blobs)
	r.blobs = make(map[Handle]entry)
	return n
}
