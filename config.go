package turbotimer

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultNumBuckets is a reasonable default shard count for moderate
	// producer concurrency.
	DefaultNumBuckets = 13
	// MaxNumBuckets is the hard ceiling validated by Start.
	MaxNumBuckets = 1024
)

// Options configures Scheduler.Start. It is the in-memory counterpart of
// SchedulerConfig (the YAML-loadable form, see LoadSchedulerConfig).
type Options struct {
	// NumBuckets is the number of intake shards, 1..MaxNumBuckets. 0 selects
	// DefaultNumBuckets.
	NumBuckets int
	// SlabBlockSize is the arena block size, in bytes, used by the task slab.
	// 0 selects defaultSlabBlockSize.
	SlabBlockSize int
	// Clock is consulted for "now" throughout; nil selects SystemClock.
	Clock Clock
	// Logger receives lifecycle and diagnostic messages; nil disables logging.
	Logger *LoggerConfig
}

// SchedulerConfig is the YAML-loadable configuration: plain structs with
// yaml tags, a Default*Config constructor, and a thin load wrapper around
// gopkg.in/yaml.v3.
type SchedulerConfig struct {
	NumBuckets    int           `yaml:"num_buckets"`
	SlabBlockSize string        `yaml:"slab_block_size"`
	LogConfig     *LoggerConfig `yaml:"log_config"`
}

// DefaultSchedulerConfig returns the package defaults: 13 buckets, 128KiB
// slab blocks, text logging at info level to stderr.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		NumBuckets:    DefaultNumBuckets,
		SlabBlockSize: "128KiB",
		LogConfig:     DefaultLoggerConfig(),
	}
}

// LoadSchedulerConfig reads and parses a YAML document of the form:
//
//	num_buckets: 13
//	slab_block_size: 128KiB
//	log_config:
//	  level: info
//
// from path, overlaying it onto DefaultSchedulerConfig. Pass buf to decode an
// in-memory document instead of reading a file (used by tests).
func LoadSchedulerConfig(path string, buf []byte) (*SchedulerConfig, error) {
	if buf == nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", path, err)
		}
	}

	cfg := DefaultSchedulerConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("file %q: %w", path, err)
	}
	return cfg, nil
}

// ToOptions resolves the YAML configuration into Start's Options, parsing
// SlabBlockSize and applying SetLogger as a side effect, so config drives
// the package-level logger as part of startup.
func (c *SchedulerConfig) ToOptions() (Options, error) {
	if c == nil {
		c = DefaultSchedulerConfig()
	}
	blockSize, err := ParseSlabBlockSize(c.SlabBlockSize)
	if err != nil {
		return Options{}, err
	}
	if err := SetLogger(c.LogConfig); err != nil {
		return Options{}, err
	}
	return Options{
		NumBuckets:    c.NumBuckets,
		SlabBlockSize: blockSize,
		Logger:        c.LogConfig,
	}, nil
}
