package watcher

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/net/webdav"
)

// WebDAVLister lists directories of a webdav.FileSystem, e.g. webdav.Dir or
// the in-memory file system returned by webdav.NewMemFS.
type WebDAVLister struct {
	FS webdav.FileSystem
}

// statically ensure that WebDAVLister implements Lister.
var _ Lister = WebDAVLister{}

// List returns the sorted entry names of dir within the file system.
func (l WebDAVLister) List(ctx context.Context, dir string) ([]string, error) {
	f, err := l.FS.OpenFile(ctx, dir, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %v: %w", dir, err)
	}

	entries, err := f.Readdir(-1)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("readdir %v: %w", dir, err)
	}

	err = f.Close()
	if err != nil {
		return nil, fmt.Errorf("close %v: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}
