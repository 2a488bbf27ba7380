// Package output delivers watcher events to sinks such as the console or a
// Redis channel.
package output

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Record is a single event published by a watcher.
type Record struct {
	Dir   string    `json:"dir"`
	Event string    `json:"event"`
	Files []string  `json:"files"`
	Time  time.Time `json:"time"`
}

func (r Record) String() string {
	return fmt.Sprintf("<Record %v in %q: %v>", r.Event, r.Dir, r.Files)
}

// Sink receives records.
type Sink interface {
	Send(ctx context.Context, rec Record) error
}

// Processor sends records to all Sinks. It runs on its own goroutine, so that
// slow sinks do not block the watchers.
type Processor struct {
	Sinks []Sink

	log logrus.FieldLogger
}

// SetLogger updates the logger to use.
func (p *Processor) SetLogger(logger logrus.FieldLogger) {
	p.log = logger.WithField("component", "processor")
}

// Run sends all records received from ch to the sinks until ctx is cancelled
// or ch is closed. Errors returned by a sink are logged.
func (p *Processor) Run(ctx context.Context, ch <-chan Record) error {
	if p.log == nil {
		p.SetLogger(logrus.StandardLogger())
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-ch:
			if !ok {
				return nil
			}

			for _, sink := range p.Sinks {
				err := sink.Send(ctx, rec)
				if err != nil {
					p.log.WithField("dir", rec.Dir).Warnf("send %v to %T failed: %v", rec.Event, sink, err)
				}
			}
		}
	}
}
