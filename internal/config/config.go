package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPCSC   = "pcsc"
	BackendLibNFC = "libnfc"
)

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Read      ReadConfig      `yaml:"read"`
	Log       LogConfig       `yaml:"log"`
}

type TransportConfig struct {
	Backend     string        `yaml:"backend"`
	ReaderIndex int           `yaml:"reader_index"`
	ReaderName  string        `yaml:"reader_name"`
	ConnString  string        `yaml:"connstring"`
	TagTimeout  time.Duration `yaml:"tag_timeout"`
}

type ReadConfig struct {
	TLVMode string `yaml:"tlv_mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Backend:    BackendPCSC,
			TagTimeout: 15 * time.Second,
		},
		Read: ReadConfig{TLVMode: "flat"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	// An empty document decodes to io.EOF and keeps the defaults.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Transport.Backend {
	case BackendPCSC, BackendLibNFC:
	default:
		return fmt.Errorf("config.transport.backend must be %q or %q, got %q", BackendPCSC, BackendLibNFC, c.Transport.Backend)
	}
	if c.Transport.ReaderIndex < 0 {
		return fmt.Errorf("config.transport.reader_index must be >= 0")
	}
	if c.Transport.TagTimeout <= 0 {
		return fmt.Errorf("config.transport.tag_timeout must be positive")
	}

	switch strings.ToLower(c.Read.TLVMode) {
	case "flat", "nested":
	default:
		return fmt.Errorf("config.read.tlv_mode must be flat or nested, got %q", c.Read.TLVMode)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
