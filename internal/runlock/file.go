package runlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// File is an advisory lock on a file in the data dir, shared by `serve` and `scrape`.
type File struct {
	path  string
	retry time.Duration
}

func NewFile(path string) *File {
	return &File{path: path, retry: 100 * time.Millisecond}
}

func (f *File) Lock(ctx context.Context) (context.Context, func(), error) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return nil, nil, err
	}
	fl := flock.New(f.path)
	ok, err := fl.TryLockContext(ctx, f.retry)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, f.path, err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAcquired, f.path)
	}
	return ctx, func() { _ = fl.Unlock() }, nil
}
