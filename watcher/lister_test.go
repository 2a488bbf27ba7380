package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/net/webdav"
)

func write(t testing.TB, filename, data string) {
	err := os.WriteFile(filename, []byte(data), 0600)
	if err != nil {
		t.Fatalf("write %v failed: %v", filename, err)
	}
}

func remove(t testing.TB, filename string) {
	err := os.Remove(filename)
	if err != nil {
		t.Fatalf("remove %v failed: %v", filename, err)
	}
}

func TestDirLister(t *testing.T) {
	t.Parallel()

	tempdir := t.TempDir()

	for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
		write(t, filepath.Join(tempdir, name), name)
	}

	err := os.Mkdir(filepath.Join(tempdir, "subdir"), 0700)
	if err != nil {
		t.Fatal(err)
	}

	names, err := DirLister{}.List(context.Background(), tempdir)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a.txt", "b.txt", "c.txt", "subdir"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("wrong names, want %v, got %v", want, names)
	}

	_, err = DirLister{}.List(context.Background(), filepath.Join(tempdir, "missing"))
	if err == nil {
		t.Errorf("expected error for missing directory")
	}
}

func TestWebDAVLister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := webdav.NewMemFS()

	err := fs.Mkdir(ctx, "/incoming", 0700)
	if err != nil {
		t.Fatal(err)
	}

	create := func(name string) {
		f, err := fs.OpenFile(ctx, name, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0600)
		if err != nil {
			t.Fatal(err)
		}

		err = f.Close()
		if err != nil {
			t.Fatal(err)
		}
	}

	create("/incoming/1.js")

	f := &Factory{Lister: WebDAVLister{FS: fs}, Log: quietLogger()}

	w, err := f.CreateEx(ctx, "/incoming")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(w.Files(), []string{"1.js"}) {
		t.Errorf("wrong files %v", w.Files())
	}

	rec := record(t, w)

	create("/incoming/3.js")
	create("/incoming/4.js")
	w.Reconcile(ctx)

	err = fs.RemoveAll(ctx, "/incoming/1.js")
	if err != nil {
		t.Fatal(err)
	}

	w.Reconcile(ctx)

	want := []recorded{
		{ev: Added, files: []string{"3.js", "4.js"}},
		{ev: Deleted, files: []string{"1.js"}},
	}

	if !reflect.DeepEqual(rec.list(), want) {
		t.Errorf("wrong events, want %v, got %v", want, rec.list())
	}

	_, err = f.CreateEx(ctx, "/missing")
	if err == nil {
		t.Errorf("expected error for missing directory")
	}
}

func TestEntryName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir, path, name string
	}{
		{"/tmp/x", "/tmp/x/foo.txt", "foo.txt"},
		{"/tmp/x", "/tmp/x", ""},
		{"/tmp/x", "/tmp/x/sub/foo.txt", ""},
		{"/tmp/x", "/tmp/y/foo.txt", ""},
	}

	for _, test := range tests {
		name := entryName(test.dir, test.path)
		if name != test.name {
			t.Errorf("entryName(%q, %q): want %q, got %q", test.dir, test.path, test.name, name)
		}
	}
}
