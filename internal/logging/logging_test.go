// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{"", zerolog.WarnLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" INFO ", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.WarnLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNew_LevelFlagWinsOverEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	log := New(ProfileTest, "info", &buf)
	log.Info().Msg("directory read")
	log.Debug().Msg("exchange")

	out := buf.String()
	if !strings.Contains(out, "directory read") {
		t.Errorf("info message missing: %q", out)
	}
	if strings.Contains(out, "exchange") {
		t.Errorf("debug message should be filtered: %q", out)
	}
}

func TestNew_EnvLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	log := New(ProfileRuntime, "", &buf)
	log.Warn().Msg("unknown wavelength")
	if buf.Len() != 0 {
		t.Errorf("warn should be filtered at error level: %q", buf.String())
	}
}
