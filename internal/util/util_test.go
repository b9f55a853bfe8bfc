// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeString(text string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	}
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	tests := []struct {
		name    string
		write   func(io.Writer) error
		wantErr bool
		want    string
	}{
		{"creates parents", writeString("threshold = 3\n"), false, "threshold = 3\n"},
		{"overwrites", writeString("threshold = 2\n"), false, "threshold = 2\n"},
		{"failed write keeps old content", func(w io.Writer) error {
			io.WriteString(w, "partial")
			return errors.New("encode failed")
		}, true, "threshold = 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AtomicWrite(path, 0o600, tt.write)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AtomicWrite() error = %v, wantErr %v", err, tt.wantErr)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("content = %q, want %q", data, tt.want)
			}
		})
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected no temp files left behind, found %d entries", len(entries))
	}
	if info, err := os.Stat(path); err == nil && os.PathSeparator == '/' && info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Teleport", "teleport", true},
		{"RELOAD", "reload", true},
		{"Straße", "STRASSE", true},
		{"give", "gift", false},
	}

	for _, tt := range tests {
		if got := EqualFold(tt.a, tt.b); got != tt.want {
			t.Errorf("EqualFold(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHasFoldPrefix(t *testing.T) {
	tests := []struct {
		s, prefix string
		want      bool
	}{
		{"teleport", "", true},
		{"teleport", "TEL", true},
		{"Reload", "re", true},
		{"give", "gx", false},
	}

	for _, tt := range tests {
		if got := HasFoldPrefix(tt.s, tt.prefix); got != tt.want {
			t.Errorf("HasFoldPrefix(%q, %q) = %v, want %v", tt.s, tt.prefix, got, tt.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 0, ""},
		{"hello", 2, "he"},
	}

	for _, tt := range tests {
		if got := TruncateWidth(tt.in, tt.width); got != tt.want {
			t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 5); got != "ab   " {
		t.Errorf("PadRight() = %q, want %q", got, "ab   ")
	}
}
