// Package config loads discovery options from defaults, an optional YAML
// file, and environment variable overrides, in that precedence order (CLI
// flags, layered on top by the caller, win last).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default option values, per the wire/facade contract.
const (
	DefaultHelloInterval   = 1000
	DefaultCheckInterval   = 2000
	DefaultNodeTimeout     = 2000
	DefaultMasterTimeout   = 2000
	DefaultAddress         = "0.0.0.0"
	DefaultPort            = 12345
	DefaultBroadcast       = "255.255.255.255"
	DefaultMulticastTTL    = 1
	DefaultMastersRequired = 1
	DefaultReuseAddr       = true
	DefaultIgnoreProcess   = true
	DefaultIgnoreInstance  = true
	DefaultConfigPath      = "/etc/lanpeer/discover.yaml"
)

// Config holds every tunable of a discovery instance.
type Config struct {
	HelloInterval   int             `yaml:"hello_interval"`
	CheckInterval   int             `yaml:"check_interval"`
	NodeTimeout     int             `yaml:"node_timeout"`
	MasterTimeout   int             `yaml:"master_timeout"`
	Address         string          `yaml:"address"`
	Port            int             `yaml:"port"`
	Broadcast       string          `yaml:"broadcast"`
	Multicast       string          `yaml:"multicast"`
	MulticastTTL    int             `yaml:"multicast_ttl"`
	Unicast         string          `yaml:"unicast"`
	Key             string          `yaml:"key"` // reserved for encryption; accepted but unused
	MastersRequired int             `yaml:"masters_required"`
	Weight          float64         `yaml:"weight"`
	WeightSet       bool            `yaml:"-"` // true if Weight came from file/env rather than the time-based default
	Client          bool            `yaml:"client"`
	ReuseAddr       bool            `yaml:"reuse_addr"`
	IgnoreProcess   bool            `yaml:"ignore_process"`
	IgnoreInstance  bool            `yaml:"ignore_instance"`
	Advertisement   json.RawMessage `yaml:"-"`
	Hostname        string          `yaml:"hostname"`

	LogLevel string `yaml:"log_level"`
}

// DefaultWeight returns the fallback election weight: the negated
// fractional part of the time of construction. Callers wanting a reliable
// election should assign explicit, distinct weights; this default is a
// convenience, not a guarantee of uniqueness.
func DefaultWeight() float64 {
	now := time.Now()
	frac := float64(now.Nanosecond()) / 1e9
	return -frac
}

// DefaultConfig returns a Config with sane defaults. Weight is left unset
// (WeightSet=false); callers should assign DefaultWeight() at instance
// creation time, not at config-load time, so two instances loading the
// same file still get distinct weights.
func DefaultConfig() *Config {
	return &Config{
		HelloInterval:   DefaultHelloInterval,
		CheckInterval:   DefaultCheckInterval,
		NodeTimeout:     DefaultNodeTimeout,
		MasterTimeout:   DefaultMasterTimeout,
		Address:         DefaultAddress,
		Port:            DefaultPort,
		Broadcast:       DefaultBroadcast,
		MulticastTTL:    DefaultMulticastTTL,
		MastersRequired: DefaultMastersRequired,
		ReuseAddr:       DefaultReuseAddr,
		IgnoreProcess:   DefaultIgnoreProcess,
		IgnoreInstance:  DefaultIgnoreInstance,
		LogLevel:        "info",
	}
}

// LoadFromFile loads configuration from a YAML file, falling back to
// defaults if the file does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	var keys map[string]interface{}
	if err := yaml.Unmarshal(data, &keys); err == nil {
		if _, ok := keys["weight"]; ok {
			cfg.WeightSet = true
		}
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides. Env vars use
// the LANPEER_ prefix.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LANPEER_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("LANPEER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("LANPEER_BROADCAST"); v != "" {
		c.Broadcast = v
	}
	if v := os.Getenv("LANPEER_MULTICAST"); v != "" {
		c.Multicast = v
	}
	if v := os.Getenv("LANPEER_UNICAST"); v != "" {
		c.Unicast = v
	}
	if v := os.Getenv("LANPEER_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Weight = w
			c.WeightSet = true
		}
	}
	if v := os.Getenv("LANPEER_CLIENT"); strings.EqualFold(v, "true") {
		c.Client = true
	}
	if v := os.Getenv("LANPEER_HOSTNAME"); v != "" {
		c.Hostname = v
	}
	if v := os.Getenv("LANPEER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the cross-field timing constraints:
// check_interval <= node_timeout <= master_timeout.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.CheckInterval > c.NodeTimeout {
		return fmt.Errorf("check_interval (%d) must be <= node_timeout (%d)", c.CheckInterval, c.NodeTimeout)
	}
	if c.NodeTimeout > c.MasterTimeout {
		return fmt.Errorf("node_timeout (%d) must be <= master_timeout (%d)", c.NodeTimeout, c.MasterTimeout)
	}
	if c.MastersRequired < 1 {
		return fmt.Errorf("masters_required must be >= 1, got %d", c.MastersRequired)
	}
	return nil
}

// SaveToFile writes config to a YAML file.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
