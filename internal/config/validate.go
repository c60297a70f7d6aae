// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate checks cfg before any file or device is opened
func Validate(cfg Config) error {
	if cfg.Port == "" && cfg.Bridge.URL == "" {
		return errors.New("a serial port (or --url) is required")
	}
	if cfg.Port != "" && cfg.Bridge.URL != "" {
		return errors.New("serial port and --url are mutually exclusive")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", cfg.Baud)
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %s", cfg.ReadTimeout)
	}

	if cfg.Bridge.URL != "" {
		u, err := url.Parse(cfg.Bridge.URL)
		if err != nil {
			return fmt.Errorf("invalid bridge url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("unsupported bridge url scheme %q (use ws:// or wss://)", u.Scheme)
		}
	}

	if cfg.Output.XLSX != "" && !strings.EqualFold(filepath.Ext(cfg.Output.XLSX), ".xlsx") {
		return fmt.Errorf("spreadsheet output %s: path must end in .xlsx", cfg.Output.XLSX)
	}

	seen := map[string]string{}
	for _, o := range []struct{ name, path string }{
		{"csv", cfg.Output.CSV},
		{"xlsx", cfg.Output.XLSX},
		{"cbor", cfg.Output.CBOR},
	} {
		if o.path == "" {
			continue
		}
		abs, err := filepath.Abs(o.path)
		if err != nil {
			abs = o.path
		}
		if other, ok := seen[abs]; ok {
			return fmt.Errorf("%s and %s outputs both write %s", other, o.name, o.path)
		}
		seen[abs] = o.name
	}

	return nil
}
