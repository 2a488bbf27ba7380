package watcher

import (
	"github.com/rjeczalik/notify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

func watchDir(dirname string, ch chan<- notify.EventInfo) error {
	return notify.Watch(
		dirname,
		ch,
		notify.InCreate, notify.InDelete,
		notify.InMovedFrom, notify.InMovedTo,
		notify.InCloseWrite,
	)
}

func translate(log logrus.FieldLogger, dir string, evinfo notify.EventInfo) Notification {
	n := Notification{Filename: entryName(dir, evinfo.Path())}

	if ev, ok := evinfo.Sys().(*unix.InotifyEvent); ok {
		log.Debugf("event %v for path %v, mask 0x%x, cookie %d", evinfo.Event(), evinfo.Path(), ev.Mask, ev.Cookie)

		// the event name is empty for events on the directory itself
		if ev.Len == 0 {
			n.Filename = ""
		}
	} else {
		log.Debugf("event %v for path %v", evinfo.Event(), evinfo.Path())
	}

	switch evinfo.Event() {
	case notify.InCreate, notify.InDelete, notify.InMovedFrom, notify.InMovedTo:
		n.Kind = KindRename
	case notify.InCloseWrite:
		n.Kind = KindChange
	default:
		n.Kind = KindUnknown
	}

	return n
}
