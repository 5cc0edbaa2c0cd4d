package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the neptune-dump configuration. Every field can be set
// in a YAML file and overridden by a flag.
type Config struct {
	// Port is the serial device path, e.g. "/dev/ttyUSB0" or "COM3".
	Port string `yaml:"port"`

	// BaudRate is the serial line rate. The stock cradle only speaks
	// 57600; leave it zero unless you know otherwise.
	BaudRate int `yaml:"baud_rate"`

	// SettleDelay is how long to wait after asserting DTR before the
	// handshake starts.
	SettleDelay time.Duration `yaml:"settle_delay"`

	// ReplyWait is the per-attempt reply timeout.
	ReplyWait time.Duration `yaml:"reply_wait"`

	// MaxAttempts is the transaction retry budget.
	MaxAttempts int `yaml:"max_attempts"`

	// CaptureFile, when set, records the full protocol trace to a
	// .nlog file viewable with neptune-log.
	CaptureFile string `yaml:"capture_file"`

	// Output is the record export path. Empty writes to stdout.
	Output string `yaml:"output"`

	// Format selects the export encoding: "cbor" or "jsonl".
	Format string `yaml:"format"`

	// LogLevel sets console verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML configuration file into cfg, keeping values
// already set for any key the file omits.
func LoadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Format {
	case "", "cbor", "jsonl":
	default:
		return fmt.Errorf("unknown format %q (use cbor or jsonl)", c.Format)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q (use debug, info, warn, error)", c.LogLevel)
	}
	return nil
}
