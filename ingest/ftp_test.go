package ingest

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(ioutil.Discard)

	return log
}

func TestFTPPutFile(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		path string
		data string
		name string
	}{
		{"/5.js", "alert(5);", "5.js"},
		{"scans/2020/invoice.pdf", "%PDF-1.4", "invoice.pdf"},
		{"/empty.txt", "", "empty.txt"},
	}

	for _, test := range tests {
		// create local copy of test
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			tempdir := t.TempDir()

			var uploaded []string

			d := ftpDriver{
				dir: tempdir,
				log: quietLogger(),
				onUpload: func(filename string) {
					uploaded = append(uploaded, filename)
				},
			}

			n, err := d.PutFile(test.path, strings.NewReader(test.data), false)
			if err != nil {
				t.Fatal(err)
			}

			if n != int64(len(test.data)) {
				t.Errorf("wrong number of bytes, want %d, got %d", len(test.data), n)
			}

			filename := filepath.Join(tempdir, test.name)

			buf, err := ioutil.ReadFile(filename)
			if err != nil {
				t.Fatal(err)
			}

			if string(buf) != test.data {
				t.Errorf("wrong content, want %q, got %q", test.data, buf)
			}

			if len(uploaded) != 1 || uploaded[0] != filename {
				t.Errorf("wrong uploads %v", uploaded)
			}
		})
	}
}

func TestFTPPutFileAppend(t *testing.T) {
	t.Parallel()

	tempdir := t.TempDir()

	called := false
	d := ftpDriver{
		dir:      tempdir,
		log:      quietLogger(),
		onUpload: func(string) { called = true },
	}

	_, err := d.PutFile("/5.js", strings.NewReader("more"), true)
	if !errors.Is(err, errNotImplemented) {
		t.Errorf("wrong error, want %v, got %v", errNotImplemented, err)
	}

	entries, err := ioutil.ReadDir(tempdir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Errorf("files created for rejected append: %v", entries)
	}

	if called {
		t.Errorf("OnUpload called for rejected append")
	}
}

func TestFTPRejectsOtherOperations(t *testing.T) {
	t.Parallel()

	d := ftpDriver{dir: t.TempDir(), log: quietLogger()}

	for name, err := range map[string]error{
		"DeleteFile": d.DeleteFile("/5.js"),
		"DeleteDir":  d.DeleteDir("/"),
		"Rename":     d.Rename("/a", "/b"),
		"MakeDir":    d.MakeDir("/sub"),
	} {
		if !errors.Is(err, errNotImplemented) {
			t.Errorf("%v: wrong error %v", name, err)
		}
	}

	_, _, err := d.GetFile("/5.js", 0)
	if !errors.Is(err, errNotImplemented) {
		t.Errorf("GetFile: wrong error %v", err)
	}

	fi, err := d.Stat("/")
	if err != nil {
		t.Fatal(err)
	}

	if !fi.IsDir() || fi.Owner() != "root" {
		t.Errorf("wrong file info for target dir: dir %v, owner %v", fi.IsDir(), fi.Owner())
	}
}

func TestFTPServerStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := &FTPServer{
		TargetDir: t.TempDir(),
		Bind:      "127.0.0.1:0",
	}
	srv.SetLogger(quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan error, 1)

	go func() {
		ch <- srv.Run(ctx)
	}()

	select {
	case err := <-ch:
		if err != nil {
			t.Errorf("Run returned error %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
