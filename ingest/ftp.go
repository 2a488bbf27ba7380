package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"goftp.io/server/core"
)

var errNotImplemented = errors.New("not implemented")

type ftpFileInfo struct {
	os.FileInfo
}

func (ftpFileInfo) Owner() string {
	return "root"
}

func (ftpFileInfo) Group() string {
	return "root"
}

// ftpDriver implements an FTP file system which only accepts uploads.
type ftpDriver struct {
	dir      string
	log      logrus.FieldLogger
	onUpload func(filename string)
}

func (d ftpDriver) Stat(string) (core.FileInfo, error) {
	fi, err := os.Lstat(d.dir)
	if err != nil {
		return nil, err
	}

	return ftpFileInfo{fi}, nil
}

func (ftpDriver) ListDir(string, func(core.FileInfo) error) error {
	return errNotImplemented
}

func (ftpDriver) DeleteDir(string) error {
	return errNotImplemented
}

func (ftpDriver) DeleteFile(string) error {
	return errNotImplemented
}

func (ftpDriver) Rename(string, string) error {
	return errNotImplemented
}

func (ftpDriver) MakeDir(string) error {
	return errNotImplemented
}

func (ftpDriver) GetFile(string, int64) (int64, io.ReadCloser, error) {
	return 0, nil, errNotImplemented
}

func (d ftpDriver) PutFile(path string, rd io.Reader, appendData bool) (int64, error) {
	if appendData {
		return 0, errNotImplemented
	}

	f, err := create(d.dir, path)
	if err != nil {
		d.log.Warnf("PutFile %v: %v", path, err)

		return 0, err
	}

	n, err := io.Copy(f, rd)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())

		d.log.Warnf("PutFile %v: copy: %v", path, err)

		return n, fmt.Errorf("copy: %w", err)
	}

	err = f.Close()
	if err != nil {
		return n, fmt.Errorf("close: %w", err)
	}

	d.log.WithField("filename", filepath.Base(f.Name())).Infof("received %d bytes via FTP", n)

	if d.onUpload != nil {
		d.onUpload(f.Name())
	}

	return n, nil
}

type ftpFactory struct {
	driver ftpDriver
}

func (f ftpFactory) NewDriver() (core.Driver, error) {
	return f.driver, nil
}

type allowAll struct{}

func (allowAll) CheckPasswd(string, string) (bool, error) {
	return true, nil
}

// FTPServer implements an FTP server which only supports uploading files. The
// files are placed in TargetDir and OnUpload is run after an upload
// completed.
type FTPServer struct {
	TargetDir string
	Bind      string
	Verbose   bool

	OnUpload func(filename string)

	log logrus.FieldLogger
}

// SetLogger updates the logger to use.
func (srv *FTPServer) SetLogger(logger logrus.FieldLogger) {
	srv.log = logger.WithField("component", "ftp")
}

// Run starts the server. When ctx is cancelled, the listener is stopped.
func (srv *FTPServer) Run(ctx context.Context) error {
	if srv.log == nil {
		srv.SetLogger(logrus.StandardLogger())
	}

	serverOpts := &core.ServerOpts{
		WelcomeMessage: "dirwatch upload",
		Auth:           allowAll{},
		Factory: ftpFactory{
			driver: ftpDriver{
				dir:      srv.TargetDir,
				log:      srv.log,
				onUpload: srv.OnUpload,
			},
		},
	}

	if !srv.Verbose {
		serverOpts.Logger = &core.DiscardLogger{}
	}

	ftpServer := core.NewServer(serverOpts)

	listener, err := net.Listen("tcp", srv.Bind)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv.log.Infof("start FTP server on %v, uploads go to %v", listener.Addr(), srv.TargetDir)

	ch := make(chan error, 1)

	go func() {
		ch <- ftpServer.Serve(listener)
	}()

	select {
	case err := <-ch:
		lerr := listener.Close()
		if err == nil {
			err = lerr
		}

		return err
	case <-ctx.Done():
		return listener.Close()
	}
}
