// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newSlogFrom(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func TestInitAndLog(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("missing message in output: %s", out)
	}
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("missing structured field in output: %s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("missing level in output: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Output: &buf})
	defer Init(DefaultConfig())

	child := With().Str("component", "recommend").Logger()
	child.Debug().Msg("model built")

	if !strings.Contains(buf.String(), `"component":"recommend"`) {
		t.Errorf("child logger lost component field: %s", buf.String())
	}
}

func TestNewTestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Info().Msg("captured")

	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("test logger did not write to buffer: %s", buf.String())
	}
}

func TestSlogHandlerForwardsToZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	slogger := NewSlogHandlerWithLogger(zl)
	logger := newSlogFrom(slogger)
	logger.Info("supervisor event", "service", "http-server", "attempt", int64(2))

	out := buf.String()
	if !strings.Contains(out, `"message":"supervisor event"`) {
		t.Errorf("missing message: %s", out)
	}
	if !strings.Contains(out, `"service":"http-server"`) {
		t.Errorf("missing string attr: %s", out)
	}
	if !strings.Contains(out, `"attempt":2`) {
		t.Errorf("missing int attr: %s", out)
	}
}
