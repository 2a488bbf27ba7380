// Package ingest implements upload-only FTP and WebDAV servers which store
// uploaded files in a directory, usually one observed by a watcher.
package ingest

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const filenameFormat = "20060102-150405"

// uploadName returns the name for an uploaded file. The base name of the
// uploaded path is kept, if it is unusable a name based on the current time is
// generated.
func uploadName(uploaded string, now time.Time) string {
	name := path.Base(strings.ReplaceAll(uploaded, "\\", "/"))

	switch name {
	case "", ".", "..", "/":
		return now.Format(filenameFormat)
	}

	if strings.HasPrefix(name, ".") {
		return now.Format(filenameFormat) + path.Ext(name)
	}

	return name
}

// create opens the file for an upload in dir.
func create(dir, uploaded string) (*os.File, error) {
	filename := filepath.Join(dir, uploadName(uploaded, time.Now()))

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	return f, nil
}
