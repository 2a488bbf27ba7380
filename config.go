package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the configuration file.
type Config struct {
	// Dirs are the directories to watch.
	Dirs []string `yaml:"dirs"`

	// Backend selects the notification source, "notify" or "fsnotify".
	Backend string `yaml:"backend"`

	// Lister selects how directories are listed, "os" or "webdav".
	Lister string `yaml:"lister"`

	LogLevel string `yaml:"log_level"`

	Console  ConsoleConfig   `yaml:"console"`
	Redis    *RedisConfig    `yaml:"redis"`
	Pushover *PushoverConfig `yaml:"pushover"`
	Ingest   IngestConfig    `yaml:"ingest"`
}

type ConsoleConfig struct {
	Disabled bool `yaml:"disabled"`
	NoColor  bool `yaml:"no_color"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type PushoverConfig struct {
	Token      string        `yaml:"token"`
	Recipients []string      `yaml:"recipients"`
	Interval   time.Duration `yaml:"interval"`
	Burst      int           `yaml:"burst"`
}

// IngestConfig configures the upload servers. Uploads are stored in
// TargetDir, which defaults to the first watched directory.
type IngestConfig struct {
	TargetDir    string `yaml:"target_dir"`
	FTPListen    string `yaml:"ftp_listen"`
	WebDAVListen string `yaml:"webdav_listen"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:  "notify",
		Lister:   "os",
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration file. Fields not set in the file keep
// the values of DefaultConfig.
func LoadConfig(filename string) (Config, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config failed: %w", err)
	}

	cfg := DefaultConfig()

	err = yaml.UnmarshalStrict(buf, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config failed: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (cfg Config) Validate() error {
	switch cfg.Backend {
	case "notify", "fsnotify":
	default:
		return fmt.Errorf("invalid backend %q", cfg.Backend)
	}

	switch cfg.Lister {
	case "os", "webdav":
	default:
		return fmt.Errorf("invalid lister %q", cfg.Lister)
	}

	if cfg.Redis != nil && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis: addr is empty")
	}

	return nil
}
