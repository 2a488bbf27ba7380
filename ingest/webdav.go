package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/webdav"
)

// rootDir is the (always empty) root directory.
type rootDir struct{}

func (rootDir) Name() string       { return "/" }
func (rootDir) Size() int64        { return 0 }
func (rootDir) Mode() fs.FileMode  { return os.ModeDir | 0o755 }
func (rootDir) ModTime() time.Time { return time.Now() }
func (rootDir) IsDir() bool        { return true }
func (rootDir) Sys() any           { return nil }

func (rootDir) Close() error                       { return nil }
func (rootDir) Read([]byte) (int, error)           { return 0, syscall.EIO }
func (rootDir) Write([]byte) (int, error)          { return 0, syscall.EIO }
func (rootDir) Seek(int64, int) (int64, error)     { return 0, syscall.EIO }
func (rootDir) Readdir(int) ([]fs.FileInfo, error) { return []fs.FileInfo{}, nil }
func (d rootDir) Stat() (fs.FileInfo, error)       { return d, nil }

var _ webdav.File = rootDir{}

// upload is a file being uploaded. Writes are passed to the file until
// maxSize bytes have been written.
type upload struct {
	written int
	maxSize int
	onClose func(filename string)

	file *os.File
}

func (u *upload) Readdir(int) ([]fs.FileInfo, error) {
	return nil, errors.New("not a directory")
}

func (u *upload) Read([]byte) (int, error) {
	return 0, errNotImplemented
}

func (u *upload) Seek(int64, int) (int64, error) {
	return 0, errNotImplemented
}

func (u *upload) Stat() (fs.FileInfo, error) {
	return u.file.Stat()
}

func (u *upload) Write(p []byte) (int, error) {
	if u.written >= u.maxSize {
		return 0, errors.New("file is full")
	}

	if u.written+len(p) > u.maxSize {
		p = p[:u.maxSize-u.written]
	}

	n, err := u.file.Write(p)
	u.written += n

	return n, err
}

func (u *upload) Close() error {
	err := u.file.Close()
	if err != nil {
		return err
	}

	if u.onClose != nil {
		u.onClose(u.file.Name())
	}

	return nil
}

var _ webdav.File = &upload{}

// DefaultMaxFileSize is used when MaxFileSize is zero.
const DefaultMaxFileSize = 50 * 1024 * 1024

// UploadOnlyFS is a webdav.FileSystem that only allows uploads into Dir.
// Files larger than MaxFileSize are truncated.
type UploadOnlyFS struct {
	Dir         string
	MaxFileSize int

	OnUpload func(filename string)

	Log logrus.FieldLogger
}

// ensure that UploadOnlyFS implements webdav.FileSystem.
var _ webdav.FileSystem = &UploadOnlyFS{}

// Mkdir is not supported.
func (ufs *UploadOnlyFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	ufs.Log.Debugf("mkdir %v -> not implemented", name)

	return errNotImplemented
}

// OpenFile opens the root directory for reading, or creates a new file.
//
// nolint:ireturn
func (ufs *UploadOnlyFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	ufs.Log.Debugf("OpenFile %v (0x%x) %v", name, flag, perm)

	if name == "/" || name == "" {
		if flag != os.O_RDONLY {
			ufs.Log.Warnf("rejecting OpenFile %v with flag 0x%x", name, flag)

			return nil, syscall.EPERM
		}

		return rootDir{}, nil
	}

	if flag&os.O_CREATE == 0 {
		return nil, os.ErrNotExist
	}

	maxSize := ufs.MaxFileSize
	if maxSize == 0 {
		maxSize = DefaultMaxFileSize
	}

	f, err := create(ufs.Dir, name)
	if err != nil {
		return nil, fmt.Errorf("create new file: %w", err)
	}

	ufs.Log.WithField("filename", f.Name()).Infof("upload file %v", name)

	return &upload{maxSize: maxSize, onClose: ufs.OnUpload, file: f}, nil
}

// RemoveAll is not supported.
func (ufs *UploadOnlyFS) RemoveAll(ctx context.Context, name string) error {
	ufs.Log.Debugf("removeall %v -> not implemented", name)

	return errNotImplemented
}

// Rename is not supported.
func (ufs *UploadOnlyFS) Rename(ctx context.Context, oldName, newName string) error {
	ufs.Log.Debugf("rename %v, %v -> not implemented", oldName, newName)

	return errNotImplemented
}

// Stat returns metadata about the root directory.
func (ufs *UploadOnlyFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if name == "/" || name == "" {
		return rootDir{}, nil
	}

	return nil, os.ErrNotExist
}

// WebDAVServer serves an UploadOnlyFS via HTTP.
type WebDAVServer struct {
	TargetDir string
	Bind      string

	OnUpload func(filename string)

	log logrus.FieldLogger
}

// SetLogger updates the logger to use.
func (srv *WebDAVServer) SetLogger(logger logrus.FieldLogger) {
	srv.log = logger.WithField("component", "webdav")
}

// Handler returns the WebDAV handler.
func (srv *WebDAVServer) Handler() http.Handler {
	if srv.log == nil {
		srv.SetLogger(logrus.StandardLogger())
	}

	return &webdav.Handler{
		FileSystem: &UploadOnlyFS{
			Dir:      srv.TargetDir,
			OnUpload: srv.OnUpload,
			Log:      srv.log,
		},
		LockSystem: webdav.NewMemLS(),
		Logger: func(req *http.Request, err error) {
			if err != nil {
				srv.log.Debugf("%v %v: %v", req.Method, req.URL.Path, err)
			}
		},
	}
}

// Run starts the server, it terminates when ctx is cancelled.
func (srv *WebDAVServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", srv.Bind)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.log.Infof("start WebDAV server on %v, uploads go to %v", listener.Addr(), srv.TargetDir)

	ch := make(chan error, 1)

	go func() {
		ch <- httpServer.Serve(listener)
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}
