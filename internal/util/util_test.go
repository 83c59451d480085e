// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	data := []byte("hello, world!")

	if err := AtomicWriteFile(path, data, 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", content, data)
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	if err := AtomicWriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteFile(path, []byte("new"), 0600); err != nil {
		t.Fatal(err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "new" {
		t.Errorf("got %q, want 'new'", content)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "secret.json")
	if err := AtomicWriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 2, "he"},
		{"hello", 0, ""},
		{"₦₦₦₦₦₦", 5, "₦₦..."},
	}
	for _, tc := range tests {
		if got := TruncateRunes(tc.in, tc.max); got != tc.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := TruncateWidth("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := TruncateWidth("a fairly long conversation title", 10)
	if StringWidth(got) > 10 {
		t.Errorf("width %d exceeds 10: %q", StringWidth(got), got)
	}
	// CJK is two columns per rune.
	got = TruncateWidth("税税税税税税", 5)
	if StringWidth(got) > 5 {
		t.Errorf("wide truncation overflowed: %q", got)
	}
	if TruncateWidth("abc", 0) != "" {
		t.Error("zero width should be empty")
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Errorf("PadRight = %q", got)
	}
}

func TestNormalizeInput(t *testing.T) {
	// "e" + combining acute composes to a single rune.
	in := "  café\r\nrate  "
	want := "café\nrate"
	if got := NormalizeInput(in); got != want {
		t.Errorf("NormalizeInput = %q, want %q", got, want)
	}
}

func TestIsBlank(t *testing.T) {
	for _, s := range []string{"", " ", "\n\t  "} {
		if !IsBlank(s) {
			t.Errorf("IsBlank(%q) = false", s)
		}
	}
	if IsBlank(" x ") {
		t.Error("IsBlank(' x ') = true")
	}
}
