package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fd0/dirwatch/ingest"
	"github.com/fd0/dirwatch/notify"
	"github.com/fd0/dirwatch/output"
	"github.com/fd0/dirwatch/watcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/net/webdav"
	"golang.org/x/sync/errgroup"
)

var opts = struct {
	Config       string
	Backend      string
	Lister       string
	Verbose      bool
	NoColor      bool
	FTPListen    string
	WebDAVListen string
	RedisAddr    string
}{}

// setupRootContext creates a root context that is cancelled when SIGINT or
// SIGTERM is received, tied to a new errgroup.Group. The returned cancel()
// function cancels the outermost context.
func setupRootContext() (wg *errgroup.Group, ctx context.Context, cancel func()) {
	ctx, cancel = context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	// couple this context with an errgroup
	wg, ctx = errgroup.WithContext(ctx)

	return wg, ctx, cancel
}

func newSource(backend string, log logrus.FieldLogger) watcher.Source {
	if backend == "fsnotify" {
		src := &watcher.FSNotifySource{}
		src.SetLogger(log)

		return src
	}

	src := &watcher.NotifySource{}
	src.SetLogger(log)

	return src
}

func newLister(lister string) watcher.Lister {
	if lister == "webdav" {
		// webdav.Dir resolves names below its root, directories are passed as absolute paths
		return watcher.WebDAVLister{FS: webdav.Dir("/")}
	}

	return watcher.DirLister{}
}

func newSinks(cfg Config, log logrus.FieldLogger) (sinks []output.Sink, cleanup func()) {
	cleanup = func() {}

	if !cfg.Console.Disabled {
		sinks = append(sinks, &output.Console{Out: os.Stdout, NoColor: cfg.Console.NoColor})
	}

	if cfg.Redis != nil {
		r := output.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
		sinks = append(sinks, r)

		cleanup = func() {
			err := r.Close()
			if err != nil {
				log.Warnf("close redis client: %v", err)
			}
		}
	}

	if cfg.Pushover != nil {
		p := notify.New(cfg.Pushover.Token, cfg.Pushover.Recipients, cfg.Pushover.Interval, cfg.Pushover.Burst)
		p.SetLogger(log)
		sinks = append(sinks, p)
	}

	return sinks, cleanup
}

// forward subscribes to all events of w and sends them to ch.
func forward(ctx context.Context, w *watcher.Watcher, ch chan<- output.Record) error {
	for _, ev := range []watcher.Event{watcher.Added, watcher.Deleted, watcher.Changed} {
		ev := ev

		_, err := w.Subscribe(ev, func(files []string) {
			rec := output.Record{
				Dir:   w.Path(),
				Event: string(ev),
				Files: files,
				Time:  time.Now(),
			}

			select {
			case ch <- rec:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %v: %w", ev, err)
		}
	}

	return nil
}

func run(cfg Config, log *logrus.Logger) error {
	wg, ctx, cancel := setupRootContext()
	defer cancel()

	records := make(chan output.Record, 100)

	sinks, cleanup := newSinks(cfg, log)
	defer cleanup()

	processor := &output.Processor{Sinks: sinks}
	processor.SetLogger(log)

	wg.Go(func() error {
		return processor.Run(ctx, records)
	})

	factory := &watcher.Factory{
		Lister: newLister(cfg.Lister),
		Source: newSource(cfg.Backend, log),
		Log:    log,
	}

	var watchers []*watcher.Watcher

	for _, dir := range cfg.Dirs {
		abspath, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("unable to find absolute dir: %w", err)
		}

		// subscribe the sinks before notifications arrive
		w, err := factory.CreateEx(ctx, abspath)
		if err == nil {
			err = forward(ctx, w, records)
		}

		if err == nil {
			err = factory.Attach(ctx, w)
		}

		if err != nil {
			cancel()
			_ = wg.Wait()

			return err
		}

		log.WithField("dir", dir).Infof("watching %d files", len(w.Files()))

		watchers = append(watchers, w)
	}

	// rescan all directories on SIGHUP
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	wg.Go(func() error {
		defer signal.Stop(hup)

		for {
			select {
			case <-ctx.Done():
				for _, w := range watchers {
					err := w.Kill()
					if err != nil {
						log.WithField("dir", w.Path()).Warnf("kill watcher: %v", err)
					}
				}

				return nil
			case <-hup:
				for _, w := range watchers {
					log.WithField("dir", w.Path()).Info("rescan directory")
					w.Reconcile(ctx)
				}
			}
		}
	})

	targetDir := cfg.Ingest.TargetDir
	if targetDir == "" {
		targetDir = cfg.Dirs[0]
	}

	onUpload := func(filename string) {
		log.WithField("filename", filename).Debug("upload complete")
	}

	if cfg.Ingest.FTPListen != "" {
		wg.Go(func() error {
			srv := &ingest.FTPServer{
				TargetDir: targetDir,
				Bind:      cfg.Ingest.FTPListen,
				Verbose:   log.IsLevelEnabled(logrus.DebugLevel),
				OnUpload:  onUpload,
			}
			srv.SetLogger(log)

			return srv.Run(ctx)
		})
	}

	if cfg.Ingest.WebDAVListen != "" {
		wg.Go(func() error {
			srv := &ingest.WebDAVServer{
				TargetDir: targetDir,
				Bind:      cfg.Ingest.WebDAVListen,
				OnUpload:  onUpload,
			}
			srv.SetLogger(log)

			return srv.Run(ctx)
		})
	}

	return wg.Wait()
}

func main() {
	fs := pflag.NewFlagSet("dirwatch", pflag.ContinueOnError)
	fs.StringVar(&opts.Config, "config", "", "read configuration from `file`")
	fs.StringVar(&opts.Backend, "backend", "notify", "notification `backend` (notify, fsnotify)")
	fs.StringVar(&opts.Lister, "lister", "os", "list directories via `lister` (os, webdav)")
	fs.BoolVar(&opts.Verbose, "verbose", false, "print verbose messages")
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.StringVar(&opts.FTPListen, "ftp-listen", "", "accept FTP uploads on `addr`")
	fs.StringVar(&opts.WebDAVListen, "webdav-listen", "", "accept WebDAV uploads on `addr`")
	fs.StringVar(&opts.RedisAddr, "redis", "", "publish events to the Redis server at `addr`")

	err := fs.Parse(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := DefaultConfig()

	if opts.Config != "" {
		cfg, err = LoadConfig(opts.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	applyFlags(fs, &cfg)

	err = cfg.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(cfg.Dirs) == 0 {
		fmt.Fprintf(os.Stderr, "usage: dirwatch [options] dir [dir...]\n")
		os.Exit(1)
	}

	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log.SetLevel(level)

	err = run(cfg, log)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// applyFlags overrides values from the configuration file with flags set on
// the command line. Positional arguments are added to the watched directories.
func applyFlags(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("backend") {
		cfg.Backend = opts.Backend
	}

	if fs.Changed("lister") {
		cfg.Lister = opts.Lister
	}

	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	if opts.NoColor {
		cfg.Console.NoColor = true
	}

	if opts.FTPListen != "" {
		cfg.Ingest.FTPListen = opts.FTPListen
	}

	if opts.WebDAVListen != "" {
		cfg.Ingest.WebDAVListen = opts.WebDAVListen
	}

	if opts.RedisAddr != "" {
		if cfg.Redis == nil {
			cfg.Redis = &RedisConfig{}
		}

		cfg.Redis.Addr = opts.RedisAddr
	}

	cfg.Dirs = append(cfg.Dirs, fs.Args()...)
}
