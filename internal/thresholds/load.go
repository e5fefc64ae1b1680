package thresholds

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Load reads, decodes and validates a threshold file.
//
// Sections missing from the file keep their defaults, except grade_bands:
// a file that defines any thresholds must list every band it supports, so
// a band is never tiered against rules nobody reviewed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML threshold document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.GradeBands = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Holder publishes the current config to concurrent readers and lets a
// watcher swap in a reloaded version.
type Holder struct {
	p atomic.Pointer[Config]

	mu    sync.Mutex
	hooks []func(*Config)
}

// NewHolder creates a Holder serving cfg.
func NewHolder(cfg *Config) *Holder {
	h := &Holder{}
	h.p.Store(cfg)
	return h
}

// Current returns the active config.
func (h *Holder) Current() *Config {
	return h.p.Load()
}

// OnSwap registers fn to run with the new config after every Swap, on the
// swapping goroutine.
func (h *Holder) OnSwap(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// Swap replaces the active config and returns the previous one.
func (h *Holder) Swap(cfg *Config) *Config {
	prev := h.p.Swap(cfg)
	h.mu.Lock()
	hooks := h.hooks
	h.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return prev
}
