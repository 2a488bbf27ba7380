package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type memSink struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (s *memSink) Send(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs = append(s.recs, rec)

	return s.err
}

func (s *memSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.recs)
}

func TestProcessor(t *testing.T) {
	t.Parallel()

	failing := &memSink{err: errors.New("connection refused")}
	good := &memSink{}

	log := logrus.New()
	log.SetOutput(ioutil.Discard)

	p := &Processor{Sinks: []Sink{failing, good}}
	p.SetLogger(log)

	ch := make(chan Record, 2)
	ch <- Record{Dir: "a", Event: "added", Files: []string{"1.js"}}
	ch <- Record{Dir: "a", Event: "deleted", Files: []string{"1.js"}}
	close(ch)

	err := p.Run(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}

	if failing.len() != 2 || good.len() != 2 {
		t.Errorf("wrong number of records: %d, %d", failing.len(), good.len())
	}
}

func TestProcessorCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)

	p := &Processor{}

	go func() {
		done <- p.Run(ctx, make(chan Record))
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestConsole(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	c := &Console{Out: &buf, NoColor: true}

	recs := []Record{
		{Dir: "in", Event: "added", Files: []string{"3.js", "4.js"}},
		{Dir: "in", Event: "deleted", Files: []string{"3.js"}},
		{Dir: "in", Event: "changed", Files: []string{"4.js"}},
		{Dir: "in", Event: "other", Files: []string{"x"}},
	}

	for _, rec := range recs {
		err := c.Send(context.Background(), rec)
		if err != nil {
			t.Fatal(err)
		}
	}

	want := "+ in/3.js\n+ in/4.js\n- in/3.js\n~ in/4.js\n? in/x\n"
	if buf.String() != want {
		t.Errorf("wrong output, want:\n%s\ngot:\n%s", want, buf.String())
	}
}

type fakePublisher struct {
	channel string
	message interface{}
	err     error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.message = message

	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}

	return cmd
}

func TestRedis(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	r := &Redis{Client: pub}

	rec := Record{
		Dir:   "/srv/in",
		Event: "added",
		Files: []string{"5.js"},
		Time:  time.Date(2020, 8, 9, 11, 25, 1, 0, time.UTC),
	}

	err := r.Send(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}

	if pub.channel != DefaultChannel {
		t.Errorf("wrong channel %q", pub.channel)
	}

	buf, ok := pub.message.([]byte)
	if !ok {
		t.Fatalf("wrong message type %T", pub.message)
	}

	var got Record

	err = json.Unmarshal(buf, &got)
	if err != nil {
		t.Fatal(err)
	}

	if got.Dir != rec.Dir || got.Event != rec.Event || len(got.Files) != 1 || !got.Time.Equal(rec.Time) {
		t.Errorf("wrong record, want %v, got %v", rec, got)
	}

	pub.err = errors.New("connection refused")
	r.Channel = "custom"

	err = r.Send(context.Background(), rec)
	if err == nil {
		t.Fatal("expected error")
	}

	if pub.channel != "custom" {
		t.Errorf("wrong channel %q", pub.channel)
	}
}
