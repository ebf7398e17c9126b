// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Session configuration: defaults, validation and YAML loading.

package control

import (
	"fmt"
	"os"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Defaults match what the visualization process expects out of the box.
const (
	DefaultEndpoint       = "LivePlot"
	DefaultSegmentSize    = 1 << 28
	DefaultConnectTimeout = 2 * time.Second
	DefaultReadTimeout    = 2 * time.Second
	DefaultHistoryLimit   = 1024
)

// Config holds parameters fixed for the lifetime of a session.
type Config struct {
	// Endpoint is the name of the consumer's local endpoint.
	Endpoint string `yaml:"endpoint"`

	// SegmentSize is the shared memory capacity in bytes; payloads larger than
	// this are rejected.
	SegmentSize int `yaml:"segment_size"`

	// ConnectTimeout bounds the control channel connect.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReadTimeout bounds handshake and header reads on the consumer side.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// AckTimeout bounds the wait for the consumer to release the segment.
	// Zero waits indefinitely: a stalled consumer then stalls the producer.
	AckTimeout time.Duration `yaml:"ack_timeout"`

	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`

	// LogFile, when set, sends logs to a size-rotated file instead of stderr.
	LogFile string `yaml:"log_file"`

	// HistoryLimit caps the points the reference consumer keeps per target.
	HistoryLimit int `yaml:"history_limit"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       DefaultEndpoint,
		SegmentSize:    DefaultSegmentSize,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		AckTimeout:     0,
		LogLevel:       "info",
		HistoryLimit:   DefaultHistoryLimit,
	}
}

// LoadConfig reads a YAML file on top of the defaults. Keys absent from the
// file keep their default value.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field for a usable value.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("%w: endpoint is empty", api.ErrInvalidArgument)
	case c.SegmentSize <= 0:
		return fmt.Errorf("%w: segment_size %d", api.ErrInvalidArgument, c.SegmentSize)
	case c.ConnectTimeout < 0, c.ReadTimeout < 0, c.AckTimeout < 0:
		return fmt.Errorf("%w: negative timeout", api.ErrInvalidArgument)
	case c.HistoryLimit < 0:
		return fmt.Errorf("%w: history_limit %d", api.ErrInvalidArgument, c.HistoryLimit)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel; empty means info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("%w: log_level %q", api.ErrInvalidArgument, c.LogLevel)
	}
	return lvl, nil
}
