package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Blob is the persistence collaborator of a Store. Load reports ok=false
// when nothing has been saved yet.
type Blob interface {
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
}

// MemoryBlob keeps the serialized forest in memory.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

func (b *MemoryBlob) Load(ctx context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.set {
		return nil, false, nil
	}
	return append([]byte(nil), b.data...), true, nil
}

func (b *MemoryBlob) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append([]byte(nil), data...)
	b.set = true
	return nil
}

// Bytes returns the last saved payload.
func (b *MemoryBlob) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// FileBlob stores the serialized forest in a single JSON file.
type FileBlob struct {
	path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (b *FileBlob) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// Save writes the file atomically via a temp file and rename.
func (b *FileBlob) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

// Backup moves the current file aside as <path>.corrupt.<timestamp> and
// returns the new location. A missing file is not an error.
func (b *FileBlob) Backup(ctx context.Context) (string, error) {
	backup := fmt.Sprintf("%s.corrupt.%s", b.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(b.path, backup); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("backup %s: %w", b.path, err)
	}
	return backup, nil
}
