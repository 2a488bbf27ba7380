//go:build !linux
// +build !linux

package watcher

import (
	"github.com/rjeczalik/notify"
	"github.com/sirupsen/logrus"
)

func watchDir(dirname string, ch chan<- notify.EventInfo) error {
	return notify.Watch(
		dirname,
		ch,
		notify.Create, notify.Remove, notify.Rename, notify.Write,
	)
}

func translate(log logrus.FieldLogger, dir string, evinfo notify.EventInfo) Notification {
	log.Debugf("event %v for path %v", evinfo.Event(), evinfo.Path())

	n := Notification{Filename: entryName(dir, evinfo.Path())}

	switch evinfo.Event() {
	case notify.Create, notify.Remove, notify.Rename:
		n.Kind = KindRename
	case notify.Write:
		n.Kind = KindChange
	default:
		n.Kind = KindUnknown
	}

	return n
}
