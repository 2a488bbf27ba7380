package watcher

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/rjeczalik/notify"
	"github.com/sirupsen/logrus"
)

const defaultNotifyChanBuf = 200

// NotifySource delivers notifications using github.com/rjeczalik/notify
// (inotify on Linux, FSEvents on macOS, ReadDirectoryChangesW on Windows).
type NotifySource struct {
	// BufferSize is the size of the channel between the OS and the
	// subscription, defaultNotifyChanBuf is used if it is zero.
	BufferSize int

	log logrus.FieldLogger
}

// statically ensure that NotifySource implements Source.
var _ Source = &NotifySource{}

// SetLogger updates the logger to use.
func (s *NotifySource) SetLogger(logger logrus.FieldLogger) {
	s.log = logger.WithField("component", "notify-source")
}

// Subscribe starts watching dir (not recursively).
func (s *NotifySource) Subscribe(ctx context.Context, dir string, handler NotificationHandler) (io.Closer, error) {
	if s.log == nil {
		s.SetLogger(logrus.StandardLogger())
	}

	abspath, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	size := s.BufferSize
	if size == 0 {
		size = defaultNotifyChanBuf
	}

	ch := make(chan notify.EventInfo, size)

	err = watchDir(abspath, ch)
	if err != nil {
		return nil, fmt.Errorf("notify watch failed: %w", err)
	}

	sub := &notifySubscription{
		dir:  abspath,
		ch:   ch,
		done: make(chan struct{}),
		log:  s.log.WithField("dir", abspath),
	}

	go sub.run(ctx, handler)

	s.log.Debugf("watch files in %v", abspath)

	return sub, nil
}

// resolveDir returns the absolute path of dir with symlinks resolved, the way
// the OS reports paths in events.
func resolveDir(dir string) (string, error) {
	abspath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("unable to find absolute dir: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abspath)
	if err != nil {
		return "", fmt.Errorf("resolve %v: %w", abspath, err)
	}

	return resolved, nil
}

// entryName returns the name of the entry in dir that path refers to, or the
// empty string if path is dir itself or not a direct child.
func entryName(dir, path string) string {
	if filepath.Dir(path) != dir {
		return ""
	}

	return filepath.Base(path)
}

type notifySubscription struct {
	dir  string
	ch   chan notify.EventInfo
	done chan struct{}
	once sync.Once
	log  logrus.FieldLogger
}

func (sub *notifySubscription) run(ctx context.Context, handler NotificationHandler) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case evinfo := <-sub.ch:
			n := translate(sub.log, sub.dir, evinfo)

			select {
			case <-sub.done:
				return
			default:
			}

			handler(ctx, n)
		}
	}
}

// Close stops the delivery of events.
func (sub *notifySubscription) Close() error {
	sub.once.Do(func() {
		notify.Stop(sub.ch)
		close(sub.done)
	})

	return nil
}
