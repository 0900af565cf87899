package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Store types.
const (
	MemoryStoreType = "MemoryStore"
	LocalStoreType  = "LocalStore"

	dirPermissionBits = 0o755
)

// ErrNotFound is returned by a Store for a missing key.
var ErrNotFound = errors.New("not found")

// Store is a flat key/value blob store holding chunked arrays.
type Store interface {
	Get(key string) (io.ReadCloser, error)
	Put(key string, val io.Reader) error
	Type() string
}

// MemoryStore keeps blobs in memory.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

// Type returns MemoryStoreType.
func (s *MemoryStore) Type() string { return MemoryStoreType }

// Get returns the blob stored under key.
func (s *MemoryStore) Get(key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(d)), nil
}

// Put stores val under key.
func (s *MemoryStore) Put(key string, val io.Reader) error {
	d, err := io.ReadAll(val)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = d
	return nil
}

// Keys returns the number of stored blobs.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// LocalStore keeps blobs as files below a base directory.
type LocalStore struct {
	base string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates base if needed.
func NewLocalStore(base string) (*LocalStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, dirPermissionBits); err != nil {
		return nil, err
	}
	return &LocalStore{base: base}, nil
}

// Type returns LocalStoreType.
func (s *LocalStore) Type() string { return LocalStoreType }

// Get opens the file for key.
func (s *LocalStore) Get(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.base, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Put writes val to the file for key.
func (s *LocalStore) Put(key string, val io.Reader) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, val); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
