package watcher

import (
	"context"
	"fmt"
	"os"
	"sort"
)

// Lister returns the names of the entries in a directory.
type Lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context, dir string) ([]string, error)

// List calls fn.
func (fn ListerFunc) List(ctx context.Context, dir string) ([]string, error) {
	return fn(ctx, dir)
}

// DirLister lists directories on the local file system. Names are returned in
// lexical order.
type DirLister struct{}

// ensure that DirLister implements Lister.
var _ Lister = DirLister{}

// List returns the sorted entry names of dir.
func (DirLister) List(ctx context.Context, dir string) ([]string, error) {
	names, err := readdirnames(dir)
	if err != nil {
		return nil, err
	}

	sort.Strings(names)

	return names, nil
}

func readdirnames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", dir, err)
	}

	names, err := f.Readdirnames(-1)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("readdir %v: %w", dir, err)
	}

	err = f.Close()
	if err != nil {
		return nil, fmt.Errorf("close %v: %w", dir, err)
	}

	return names, nil
}
