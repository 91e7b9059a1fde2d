package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the app needs to start.
type Config struct {
	Dir           string        `yaml:"dir"`
	DeviceID      string        `yaml:"device_id"` // overrides the hardware id
	MulticastAddr string        `yaml:"multicast_addr"`
	TxInterval    time.Duration `yaml:"tx_interval"`
	RxPoll        time.Duration `yaml:"rx_poll"`
	Cooldown      time.Duration `yaml:"cooldown"`
	HistoryLimit  int           `yaml:"history_limit"`
	Indicator     string        `yaml:"indicator"` // speaker | bell | none
	HTTPAddr      string        `yaml:"http_addr"`
	DisableRadio  bool          `yaml:"disable_radio"`
}

// DefaultConfig mirrors the device app's constants.
func DefaultConfig() *Config {
	return &Config{
		Dir:           "lorapass",
		MulticastAddr: defaultMulticastAddr,
		TxInterval:    defaultTxInterval,
		RxPoll:        defaultRxPoll,
		Cooldown:      defaultCooldown,
		HistoryLimit:  defaultHistoryLimit,
		Indicator:     "speaker",
	}
}

// LoadConfig merges the YAML file at path over the defaults. A missing file
// is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("dir is required")
	}
	if !c.DisableRadio && c.MulticastAddr == "" {
		return errors.New("multicast_addr is required")
	}
	if c.TxInterval <= 0 {
		return errors.New("tx_interval must be > 0")
	}
	if c.RxPoll <= 0 {
		return errors.New("rx_poll must be > 0")
	}
	if c.Cooldown <= 0 {
		return errors.New("cooldown must be > 0")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history_limit must be > 0")
	}
	switch c.Indicator {
	case "speaker", "bell", "none", "":
	default:
		return fmt.Errorf("unsupported indicator %q (use speaker, bell or none)", c.Indicator)
	}
	return nil
}

func (c *Config) path(name string) string {
	return filepath.Join(c.Dir, name)
}
