// Package localstore is a small durable key-value slot living beside the object store.
// It holds the session, the watched stories and the flat story list.
package localstore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/mdouchement/creativespace/internal/apperror"
	"github.com/mdouchement/creativespace/pkg/cborcodec"
	"github.com/pkg/errors"
)

// DefaultQuota is the maximum size in bytes of all the slots.
const DefaultQuota = 5 << 20

// Keys of the known slots.
const (
	KeyCurrentUser    = "current_user"
	KeyWatchedStories = "watched_stories"
	KeyStories        = "stories"
)

// ErrNotFound is returned when a slot is empty.
var ErrNotFound = errors.New("localstore: not found")

// A Store is a file-backed key-value slot store.
type Store struct {
	mu    sync.Mutex
	path  string
	quota int
	slots map[string][]byte
}

// Open loads the store from the given file, which is created on first write.
// A quota lower or equal to zero means DefaultQuota.
func Open(path string, quota int) (*Store, error) {
	if quota <= 0 {
		quota = DefaultQuota
	}

	s := &Store{
		path:  path,
		quota: quota,
		slots: make(map[string][]byte),
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "could not read local store")
	}

	if len(payload) == 0 {
		return s, nil
	}

	if err = cborcodec.Codec.Unmarshal(payload, &s.slots); err != nil {
		return nil, errors.Wrap(err, "could not parse local store")
	}
	return s, nil
}

// Get decodes the slot for the given key into v.
func (s *Store) Get(key string, v any) error {
	s.mu.Lock()
	raw, ok := s.slots[key]
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return errors.Wrapf(cborcodec.Codec.Unmarshal(raw, v), "could not decode slot %s", key)
}

// Set encodes v into the slot for the given key and persists the store.
// It fails with StorageQuotaExceeded when the store would grow beyond its quota.
func (s *Store) Set(key string, v any) error {
	raw, err := cborcodec.Codec.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "could not encode slot %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size() - s.entrySize(key) + len(key) + len(raw)
	if size > s.quota {
		return apperror.Newf(apperror.StorageQuotaExceeded, "Storage is full, could not save %s.", key)
	}

	previous, existed := s.slots[key]
	s.slots[key] = raw
	if err = s.persist(); err != nil {
		if existed {
			s.slots[key] = previous
		} else {
			delete(s.slots, key)
		}
		return err
	}
	return nil
}

// Remove deletes the slot for the given key.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[key]; !ok {
		return nil
	}
	delete(s.slots, key)
	return s.persist()
}

// Size returns the number of bytes used by the slots.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.size()
}

func (s *Store) size() (n int) {
	for k, v := range s.slots {
		n += len(k) + len(v)
	}
	return n
}

func (s *Store) entrySize(key string) int {
	v, ok := s.slots[key]
	if !ok {
		return 0
	}
	return len(key) + len(v)
}

func (s *Store) persist() error {
	payload, err := cborcodec.Codec.Marshal(s.slots)
	if err != nil {
		return errors.Wrap(err, "could not encode local store")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "could not create local store directory")
		}
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, payload, 0o600); err != nil {
		return errors.Wrap(err, "could not write local store")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "could not replace local store")
}
