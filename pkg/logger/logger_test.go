// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSimpleFormatWritesLevelAndMessage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	file, cleanup, err := OpenLogFile(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer cleanup()

	Init(slog.LevelInfo, file, "simple")
	slog.Info("hello", "k", "v")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO hello") {
		t.Errorf("expected simple format line, got %q", line)
	}
	if !strings.Contains(line, "k=v") {
		t.Errorf("expected attributes in line, got %q", line)
	}
}

func TestGetLoggerInitializesLazily(t *testing.T) {
	defaultLogger = nil
	if GetLogger() == nil {
		t.Error("expected a logger")
	}
}
