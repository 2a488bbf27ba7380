package watcher

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FSNotifySource delivers notifications using github.com/fsnotify/fsnotify.
type FSNotifySource struct {
	log logrus.FieldLogger
}

// statically ensure that FSNotifySource implements Source.
var _ Source = &FSNotifySource{}

// SetLogger updates the logger to use.
func (s *FSNotifySource) SetLogger(logger logrus.FieldLogger) {
	s.log = logger.WithField("component", "fsnotify-source")
}

// Subscribe starts watching dir.
func (s *FSNotifySource) Subscribe(ctx context.Context, dir string, handler NotificationHandler) (io.Closer, error) {
	if s.log == nil {
		s.SetLogger(logrus.StandardLogger())
	}

	abspath, err := resolveDir(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	err = fsw.Add(abspath)
	if err != nil {
		_ = fsw.Close()

		return nil, fmt.Errorf("fsnotify watch failed: %w", err)
	}

	sub := &fsnotifySubscription{
		dir:  abspath,
		fsw:  fsw,
		done: make(chan struct{}),
		log:  s.log.WithField("dir", abspath),
	}

	go sub.run(ctx, handler)

	s.log.Debugf("watch files in %v", abspath)

	return sub, nil
}

// fsnotifyKind maps an fsnotify operation to a notification kind. Creates and
// removals are both reported as renames.
func fsnotifyKind(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Create), op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return KindRename
	case op.Has(fsnotify.Write):
		return KindChange
	default:
		return KindUnknown
	}
}

type fsnotifySubscription struct {
	dir  string
	fsw  *fsnotify.Watcher
	done chan struct{}
	once sync.Once
	err  error
	log  logrus.FieldLogger
}

func (sub *fsnotifySubscription) run(ctx context.Context, handler NotificationHandler) {
	defer func() {
		_ = sub.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case err, ok := <-sub.fsw.Errors:
			if !ok {
				return
			}

			sub.log.Warnf("fsnotify error: %v", err)
		case ev, ok := <-sub.fsw.Events:
			if !ok {
				return
			}

			if ev.Op == fsnotify.Chmod {
				sub.log.Debugf("ignore attribute change %v", ev)

				continue
			}

			sub.log.Debugf("event %v", ev)

			n := Notification{
				Kind:     fsnotifyKind(ev.Op),
				Filename: entryName(sub.dir, ev.Name),
			}

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
func (sub *fsnotifySubscription) Close() error {
	sub.once.Do(func() {
		close(sub.done)
		sub.err = sub.fsw.Close()
	})

	return sub.err
}
