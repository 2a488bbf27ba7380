package watcher

import (
	"context"
	"fmt"
	"io"
)

// Kind is the kind of a raw notification delivered by a Source.
type Kind int

// Notification kinds. KindRename is used for both additions and removals.
const (
	KindUnknown Kind = iota
	KindRename
	KindChange
)

func (k Kind) String() string {
	switch k {
	case KindRename:
		return "rename"
	case KindChange:
		return "change"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Notification is an unprocessed signal from the OS. Filename is empty when
// the underlying implementation could not tell which entry changed.
type Notification struct {
	Kind     Kind
	Filename string
}

// NotificationHandler receives raw notifications from a Source.
type NotificationHandler func(ctx context.Context, n Notification)

// Source subscribes to change notifications for a single directory. The
// handler is called from one goroutine per subscription until the returned
// handle is closed or ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context, dir string, handler NotificationHandler) (io.Closer, error)
}
