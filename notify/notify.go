// Package notify sends watcher events as push notifications via Pushover.
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fd0/dirwatch/output"
	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Default rate limit, one message every ten seconds with a burst of three.
const (
	DefaultInterval = 10 * time.Second
	DefaultBurst    = 3
)

// maxFiles is the number of file names listed in a single message.
const maxFiles = 10

// Pushover is an output.Sink which sends a message for each record.
type Pushover struct {
	Token      string
	Recipients []string

	limiter *rate.Limiter
	log     logrus.FieldLogger

	// send delivers a message, it is replaced in tests.
	send func(token string, msg *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

// statically ensure that Pushover implements output.Sink.
var _ output.Sink = &Pushover{}

// New returns a Pushover sink which sends at most one message every interval
// (with the given burst). A zero interval uses the defaults. Empty token or
// recipients are read from DIRWATCH_PUSHOVER_TOKEN and
// DIRWATCH_PUSHOVER_RECIPIENTS.
func New(token string, recipients []string, interval time.Duration, burst int) *Pushover {
	if token == "" {
		token = os.Getenv("DIRWATCH_PUSHOVER_TOKEN")
	}

	if len(recipients) == 0 {
		for _, r := range strings.Split(os.Getenv("DIRWATCH_PUSHOVER_RECIPIENTS"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				recipients = append(recipients, r)
			}
		}
	}

	if interval == 0 {
		interval = DefaultInterval
	}

	if burst <= 0 {
		burst = DefaultBurst
	}

	p := &Pushover{
		Token:      token,
		Recipients: recipients,
		limiter:    rate.NewLimiter(rate.Every(interval), burst),
		send:       sendMessage,
	}
	p.SetLogger(logrus.StandardLogger())

	return p
}

func sendMessage(token string, msg *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error) {
	return pushover.New(token).SendMessage(msg, recipient)
}

// SetLogger updates the logger to use.
func (p *Pushover) SetLogger(logger logrus.FieldLogger) {
	p.log = logger.WithField("component", "pushover")
}

// Message returns the text and title for rec.
func Message(rec output.Record) (text, title string) {
	files := rec.Files
	more := 0

	if len(files) > maxFiles {
		more = len(files) - maxFiles
		files = files[:maxFiles]
	}

	text = fmt.Sprintf("%d file(s) %v in %v: %v", len(rec.Files), rec.Event, rec.Dir, strings.Join(files, ", "))
	if more > 0 {
		text += fmt.Sprintf(" and %d more", more)
	}

	return text, "dirwatch: " + rec.Event
}

// Send sends a message about rec to all recipients. When the token or the
// recipients are missing or the rate limit is exceeded, the message is
// dropped.
func (p *Pushover) Send(ctx context.Context, rec output.Record) error {
	log := p.log.WithField("dir", rec.Dir)

	if p.Token == "" {
		log.Warn("no pushover token found, skipping notification")

		return nil
	}

	if len(p.Recipients) == 0 {
		log.Warn("no recipients found, skipping notification")

		return nil
	}

	if !p.limiter.Allow() {
		log.Infof("rate limit exceeded, dropping notification for %v %v", rec.Event, rec.Files)

		return nil
	}

	message := pushover.NewMessageWithTitle(Message(rec))

	var firstError error

	for _, r := range p.Recipients {
		response, err := p.send(p.Token, message, pushover.NewRecipient(r))
		if err != nil {
			log.Warnf("unable to send message: %v", err)

			if firstError == nil {
				firstError = fmt.Errorf("send message: %w", err)
			}

			continue
		}

		log.Debugf("response from pushover: %v", response)
	}

	return firstError
}
