// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"strings"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
)

// Normalize trims string settings and fills zero values with defaults
func Normalize(cfg *Config) {
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.Output.CSV = strings.TrimSpace(cfg.Output.CSV)
	cfg.Output.XLSX = strings.TrimSpace(cfg.Output.XLSX)
	cfg.Output.CBOR = strings.TrimSpace(cfg.Output.CBOR)
	cfg.Bridge.URL = strings.TrimSpace(cfg.Bridge.URL)
	cfg.Bridge.Username = strings.TrimSpace(cfg.Bridge.Username)

	if cfg.Baud == 0 {
		cfg.Baud = fopm.DefaultBaudRate
	}
}
