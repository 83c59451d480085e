// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
	now     func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts, now: time.Now}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	var sb strings.Builder
	title := conv.DisplayTitle()

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		if !conv.ID.IsZero() {
			fmt.Fprintf(&sb, "conversation: %s\n", conv.ID)
		}
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.now().Format(time.RFC3339))
		fmt.Fprintf(&sb, "generator: %s\n", Generator)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range conv.Messages {
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", roleLabel(msg), formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", roleLabel(msg))
		}

		if msg.MisconceptionFlag {
			sb.WriteString("> **Note:** this question may rest on a common misconception.\n\n")
		}

		sb.WriteString(strings.TrimSpace(msg.Text))
		sb.WriteString("\n\n")

		if msg.Failed {
			sb.WriteString("_This response failed._\n\n")
		}

		if e.options.IncludeSources && msg.HasSources() {
			sb.WriteString(e.formatSources(msg.Sources))
		}

		if msg.HasFollowUps() {
			sb.WriteString("**Related questions**\n\n")
			for _, q := range msg.FollowUps {
				fmt.Fprintf(&sb, "- %s\n", q)
			}
			sb.WriteString("\n")
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from TaxEase on %s*\n", e.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// formatSources renders citations as a numbered list with excerpts quoted.
func (e *MarkdownExporter) formatSources(sources []model.Citation) string {
	var sb strings.Builder
	sb.WriteString("**Sources**\n\n")
	for i, c := range sources {
		fmt.Fprintf(&sb, "%d. %s", i+1, escapeMarkdown(c.Label()))
		if note := relevanceNote(c); note != "" {
			fmt.Fprintf(&sb, " (%s)", note)
		}
		sb.WriteString("\n")
		if excerpt := strings.TrimSpace(c.Excerpt); excerpt != "" {
			for _, line := range strings.Split(excerpt, "\n") {
				fmt.Fprintf(&sb, "   > %s\n", line)
			}
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break a heading or list item.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(`#`, `\#`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

// escapeYAML quotes a scalar when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
