// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/taxease-tui/internal/model"
	"github.com/jeranaias/taxease-tui/internal/util"
)

// Generator is stamped into exported documents.
const Generator = "taxease-tui"

var (
	errNilConversation = errors.New("conversation is nil")
	errNoMessages      = errors.New("conversation has no messages")
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a conversation in one format.
type Exporter interface {
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension includes the leading dot.
	FileExtension() string

	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Default: current directory.
	OutputDir string

	// OpenAfterExport opens the written file in the default application.
	OpenAfterExport bool

	// IncludeMetadata adds a header with dates and counts.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// IncludeSources adds each answer's citations.
	IncludeSources bool

	// Theme for HTML export ("light" or "dark").
	Theme string

	// Logger receives non-fatal warnings. Nil disables them.
	Logger *zerolog.Logger
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeSources:    true,
		Theme:             "dark",
	}
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"markdown", "html", "json"}
}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders conv and writes it under opts.OutputDir, returning
// the written path.
func ExportToFile(conv *model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("taxease_%s_%s%s",
		sanitizeFilename(conv.DisplayTitle()),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil && opts.Logger != nil {
			opts.Logger.Warn().Err(err).Str("path", outputPath).Msg("could not open exported file")
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(conv *model.Conversation) error {
	if conv == nil {
		return errNilConversation
	}
	if len(conv.Messages) == 0 {
		return errNoMessages
	}
	return nil
}

// sanitizeFilename replaces characters that are invalid in filenames on
// any supported platform.
func sanitizeFilename(s string) string {
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}

// roleLabel is the heading used for a message.
func roleLabel(m *model.Message) string {
	if m.Role.Valid() {
		return m.Role.DisplayName()
	}
	return "Unknown"
}

// relevanceNote renders a citation's relevance, or "" when it has none.
func relevanceNote(c model.Citation) string {
	if p := c.RelevancePercent(); p >= 0 {
		return fmt.Sprintf("%d%% match", p)
	}
	return ""
}
