package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultBucket is the directory bucket used when none is configured.
const DefaultBucket = "users"

// Config represents the global ~/.vtexter/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	Remote         Remote `toml:"remote"`
	Media          Media  `toml:"media"`
	Log            Log    `toml:"log"`
}

// Remote locates the user directory. An empty URL runs the session
// standalone with an in-process directory.
type Remote struct {
	URL    string `toml:"url"`
	Bucket string `toml:"bucket"`
}

// Media names the external tools used for thumbnails and durations. Empty
// values are looked up on PATH.
type Media struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Log configures the daemon logger.
type Log struct {
	Level string `toml:"level"`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load that treats a missing file as an empty one.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) applyDefaults() {
	if c.Remote.Bucket == "" {
		c.Remote.Bucket = DefaultBucket
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
