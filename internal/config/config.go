// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"gopkg.in/yaml.v3"
)

// Config is everything a single poll-and-report run needs
type Config struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"` // 0 blocks until data arrives
	Verbose     bool          `yaml:"verbose"`
	LogLevel    string        `yaml:"log_level"`

	Output OutputConfig `yaml:"output"`
	Bridge BridgeConfig `yaml:"bridge"`
}

// ---- OUTPUT ----

type OutputConfig struct {
	CSV  string `yaml:"csv"`
	XLSX string `yaml:"xlsx"`
	CBOR string `yaml:"cbor"`
	TUI  bool   `yaml:"tui"`
}

// ---- BRIDGE ----

// BridgeConfig reaches the meter through a serial-to-WebSocket bridge
type BridgeConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// Default returns the settings used when neither file nor flags say otherwise
func Default() Config {
	return Config{
		Baud:     fopm.DefaultBaudRate,
		LogLevel: "warn",
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	Normalize(&cfg)
	return cfg, nil
}
