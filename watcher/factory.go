package watcher

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Factory builds watchers. Zero fields are replaced with DirLister,
// NotifySource and the standard logger.
type Factory struct {
	Lister Lister
	Source Source
	Log    logrus.FieldLogger
}

func (f *Factory) lister() Lister {
	if f.Lister == nil {
		return DirLister{}
	}

	return f.Lister
}

func (f *Factory) source() Source {
	if f.Source == nil {
		return &NotifySource{}
	}

	return f.Source
}

// CreateEx lists dir and returns a watcher for it without subscribing to
// change notifications. Notifications can be fed in with Dispatch.
func (f *Factory) CreateEx(ctx context.Context, dir string) (*Watcher, error) {
	w := newWatcher(dir, f.lister())
	if f.Log != nil {
		w.SetLogger(f.Log)
	}

	err := w.load(ctx)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Create returns a watcher for dir which is subscribed to the change
// notifications of the Source. The subscription ends when ctx is cancelled or
// the watcher is killed.
func (f *Factory) Create(ctx context.Context, dir string) (*Watcher, error) {
	w, err := f.CreateEx(ctx, dir)
	if err != nil {
		return nil, err
	}

	err = f.Attach(ctx, w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Attach subscribes w to the change notifications of the Source. Handlers
// registered on w before Attach see every event of the subscription.
func (f *Factory) Attach(ctx context.Context, w *Watcher) error {
	h, err := f.source().Subscribe(ctx, w.Path(), w.Dispatch)
	if err != nil {
		return fmt.Errorf("subscribe %v failed: %w", w.Path(), err)
	}

	err = w.attach(h)
	if err != nil {
		_ = h.Close()

		return err
	}

	w.log.Debug("watcher is live")

	return nil
}

// Create returns a live watcher for dir using the default lister and source.
func Create(ctx context.Context, dir string) (*Watcher, error) {
	var f Factory

	return f.Create(ctx, dir)
}

// CreateEx returns a watcher for dir that is not attached to a source.
func CreateEx(ctx context.Context, dir string) (*Watcher, error) {
	var f Factory

	return f.CreateEx(ctx, dir)
}
