// Package watcher keeps track of the entries of a single directory and
// publishes added, deleted and changed events. Raw notifications from a Source
// are translated by comparing them with the set of known files; notifications
// without a file name are resolved by listing the directory again.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// State is the life cycle state of a Watcher.
type State int

// States of a Watcher.
const (
	Uninitialized State = iota
	Ready
	Processing
	Killed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Processing:
		return "processing"
	case Killed:
		return "killed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrKilled is returned when attaching a source to a watcher that was killed.
var ErrKilled = errors.New("watcher has been killed")

// Watcher holds the known file set of a directory.
type Watcher struct {
	path   string
	lister Lister
	log    logrus.FieldLogger

	// dispatch serializes the processing of notifications.
	dispatch sync.Mutex

	mu     sync.Mutex
	state  State
	files  []string
	handle io.Closer

	events emitter
}

func newWatcher(path string, lister Lister) *Watcher {
	w := &Watcher{
		path:   path,
		lister: lister,
	}
	w.SetLogger(logrus.StandardLogger())

	return w
}

// SetLogger updates the logger to use.
func (w *Watcher) SetLogger(logger logrus.FieldLogger) {
	w.log = logger.WithField("component", "watcher").WithField("dir", w.path)
}

// Path returns the directory watched by w.
func (w *Watcher) Path() string {
	return w.path
}

// State returns the current state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Files returns a copy of the known file set, in order of discovery.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make([]string, len(w.files))
	copy(files, w.files)

	return files
}

// Subscribe registers fn for ev. Handlers are called on the goroutine
// processing the notification and must not call Dispatch or Reconcile.
func (w *Watcher) Subscribe(ev Event, fn Handler) (Subscription, error) {
	return w.events.subscribe(ev, fn)
}

// Unsubscribe removes the handler registered as id. It returns false if no
// such handler was registered for ev.
func (w *Watcher) Unsubscribe(ev Event, id Subscription) bool {
	return w.events.unsubscribe(ev, id)
}

// load performs the initial listing.
func (w *Watcher) load(ctx context.Context) error {
	files, err := w.lister.List(ctx, w.path)
	if err != nil {
		w.log.Errorf("failed to read files: %v", err)

		return fmt.Errorf("list %v failed: %w", w.path, err)
	}

	w.mu.Lock()
	w.files = files
	w.state = Ready
	w.mu.Unlock()

	w.log.Debugf("found %d files", len(files))

	return nil
}

// attach stores the handle of a live subscription.
func (w *Watcher) attach(h io.Closer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Killed {
		return ErrKilled
	}

	w.handle = h

	return nil
}

// Kill releases the subscription (if any) and clears the known file set. No
// events are published afterwards. Kill may be called several times.
func (w *Watcher) Kill() error {
	w.mu.Lock()
	h := w.handle
	w.handle = nil
	w.files = nil
	w.state = Killed
	w.mu.Unlock()

	if h == nil {
		return nil
	}

	w.log.Debug("release subscription")

	err := h.Close()
	if err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}

	return nil
}

// begin switches to Processing, it returns false if the watcher cannot process
// notifications.
func (w *Watcher) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Ready {
		return false
	}

	w.state = Processing

	return true
}

func (w *Watcher) end() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Processing {
		w.state = Ready
	}
}

func (w *Watcher) killed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state == Killed
}

type publication struct {
	ev    Event
	files []string
}

func (w *Watcher) publish(list ...publication) {
	for _, p := range list {
		if w.killed() {
			return
		}

		w.events.publish(p.ev, p.files)
	}
}

// Dispatch processes a raw notification. Calls are serialized.
func (w *Watcher) Dispatch(ctx context.Context, n Notification) {
	w.dispatch.Lock()
	defer w.dispatch.Unlock()

	if !w.begin() {
		w.log.Debugf("ignore %v notification in state %v", n.Kind, w.State())

		return
	}
	defer w.end()

	switch n.Kind {
	case KindRename:
		w.onRename(ctx, n.Filename)
	case KindChange:
		w.onChange(n.Filename)
	default:
		w.log.Warnf("unknown event %v from file watcher", n.Kind)
	}
}

// Reconcile lists the directory again and publishes the differences to the
// known file set, like a rename notification without a file name.
func (w *Watcher) Reconcile(ctx context.Context) {
	w.Dispatch(ctx, Notification{Kind: KindRename})
}

func (w *Watcher) onRename(ctx context.Context, filename string) {
	if filename == "" {
		w.log.Debug("rename event, no filename was supplied, diff directory")
		w.reconcile(ctx)

		return
	}

	w.log.Debugf("rename event for file %v", filename)

	w.mu.Lock()
	if w.state == Killed {
		w.mu.Unlock()

		return
	}

	ev := Added
	if i := indexOf(w.files, filename); i >= 0 {
		ev = Deleted
		w.files = append(w.files[:i:i], w.files[i+1:]...)
	} else {
		w.files = append(w.files, filename)
	}
	w.mu.Unlock()

	w.publish(publication{ev: ev, files: []string{filename}})
}

func (w *Watcher) reconcile(ctx context.Context) {
	fresh, err := w.lister.List(ctx, w.path)
	if err != nil {
		w.log.Warnf("re-listing directory failed: %v", err)

		return
	}

	w.mu.Lock()
	if w.state == Killed {
		w.mu.Unlock()
		w.log.Debug("watcher was killed while listing the directory")

		return
	}

	deleted := difference(w.files, fresh)
	added := difference(fresh, w.files)

	switch {
	case len(deleted) > 0:
		w.files = fresh
	case len(added) > 0:
		w.files = append(w.files, added...)
	}
	w.mu.Unlock()

	var list []publication

	if len(deleted) > 0 {
		w.log.Debugf("deleted: %v", deleted)
		list = append(list, publication{ev: Deleted, files: deleted})
	}

	if len(added) > 0 {
		w.log.Debugf("added: %v", added)
		list = append(list, publication{ev: Added, files: added})
	}

	w.publish(list...)
}

func (w *Watcher) onChange(filename string) {
	if filename == "" {
		w.log.Warn("filename was not supplied by the notification source, no change event is published")

		return
	}

	w.log.Debugf("change event for file %v", filename)
	w.publish(publication{ev: Changed, files: []string{filename}})
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}

	return -1
}

// difference returns the items of a which are not in b, in the order of a.
func difference(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		seen[s] = struct{}{}
	}

	var res []string

	for _, s := range a {
		if _, ok := seen[s]; ok {
			continue
		}

		res = append(res, s)
	}

	return res
}
