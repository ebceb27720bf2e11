package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// ErrCorrupt reports a backing file that exists but does not parse as the
// expected collection shape.
var ErrCorrupt = errors.New("corrupt data file")

// File persists one collection of T as a single JSON array on disk.
//
// Load on a missing file yields an empty collection. Save replaces the whole
// file through a temp-file-plus-rename cycle, so a reader never observes a
// half-written document. Update serializes the full read-modify-write cycle
// under a per-File mutex; two concurrent mutations on the same File can never
// clobber each other.
type File[T any] struct {
	path string
	mu   sync.RWMutex
}

func NewFile[T any](path string) *File[T] {
	return &File[T]{path: path}
}

// Path returns the backing file location.
func (f *File[T]) Path() string { return f.path }

// Load returns the persisted collection. A file that has never been written
// reads as an empty collection, not an error.
func (f *File[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.read()
}

// Save replaces the persisted collection wholesale.
func (f *File[T]) Save(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(items)
}

// Update runs fn over the current collection and persists its result, holding
// the File lock across the whole cycle. fn receives the loaded collection and
// returns the collection to persist; returning an error aborts with the file
// untouched. The persisted collection is returned.
func (f *File[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return nil, err
	}

	next, err := fn(items)
	if err != nil {
		return nil, err
	}

	if err := f.write(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (f *File[T]) read() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w (%v)", f.path, ErrCorrupt, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// write performs the atomic-rename cycle: marshal, write a temp file in the
// target directory, fsync, rename over the target.
func (f *File[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", f.path, err)
	}

	if err := writeAndClose(tmp, data); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", f.path, err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func writeAndClose(tmp *os.File, data []byte) error {
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	return tmp.Close()
}
