package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// ErrSlotFull is returned by a Slot that has no room for a write.
var ErrSlotFull = errors.New("slot full")

// Slot is a key/value blob store holding the local profile document.
type Slot interface {
	// Get returns the blob under key; ok is false when nothing was stored yet.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
}

// FileSlot stores each key as <dir>/<key>.json. Writes go to a temporary
// file that is renamed over the target, so readers never see a partial blob.
type FileSlot struct {
	dir string
}

func NewFileSlot(dir string) (*FileSlot, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileSlot{dir: dir}, nil
}

func (s *FileSlot) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileSlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileSlot) Put(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return mapDiskError(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return mapDiskError(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return mapDiskError(err)
	}
	if err := tmp.Close(); err != nil {
		return mapDiskError(err)
	}
	return mapDiskError(os.Rename(tmp.Name(), s.path(key)))
}

func mapDiskError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %w", ErrSlotFull, err)
	}
	return err
}

// MemorySlot keeps blobs in memory. A positive Capacity rejects larger writes
// with ErrSlotFull.
type MemorySlot struct {
	Capacity int

	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{blobs: make(map[string][]byte)}
}

func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemorySlot) Put(_ context.Context, key string, data []byte) error {
	if s.Capacity > 0 && len(data) > s.Capacity {
		return ErrSlotFull
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

var (
	_ Slot = (*FileSlot)(nil)
	_ Slot = (*MemorySlot)(nil)
)
