// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/taxease-tui/internal/model"
)

var (
	codeFenceRegex  = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
	boldRegex       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a single self-contained HTML page.
type HTMLExporter struct {
	options *Options
	now     func() time.Time
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, now: time.Now}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}
	title := html.EscapeString(conv.DisplayTitle())

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	fmt.Fprintf(&sb, "    <meta name=\"generator\" content=\"%s\">\n", Generator)
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	fmt.Fprintf(&sb, "<header class=\"header\">\n<h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		sb.WriteString("<div class=\"metadata\">\n")
		if !conv.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "<span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
		}
		fmt.Fprintf(&sb, "<span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages))
		sb.WriteString("</div>\n")
	}
	sb.WriteString("</header>\n")

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg, theme))
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\"><p>Exported from <strong>TaxEase</strong> on %s</p></footer>\n",
		e.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(msg *model.Message, theme string) string {
	var sb strings.Builder

	class := "message " + string(msg.Role) + "-message"
	if msg.Failed {
		class += " failed"
	}
	fmt.Fprintf(&sb, "<div class=\"%s\">\n<div class=\"message-header\">\n", html.EscapeString(class))
	fmt.Fprintf(&sb, "<span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg)))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "<span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("</div>\n")

	if msg.MisconceptionFlag {
		sb.WriteString("<div class=\"notice\">This question may rest on a common misconception.</div>\n")
	}

	sb.WriteString("<div class=\"message-content\">\n")
	sb.WriteString(formatContent(msg.Text, theme))
	sb.WriteString("\n</div>\n")

	if e.options.IncludeSources && msg.HasSources() {
		sb.WriteString("<details class=\"sources\" open>\n")
		fmt.Fprintf(&sb, "<summary>Sources (%d)</summary>\n<ol>\n", len(msg.Sources))
		for _, c := range msg.Sources {
			sb.WriteString("<li>")
			sb.WriteString(html.EscapeString(c.Label()))
			if note := relevanceNote(c); note != "" {
				fmt.Fprintf(&sb, " <span class=\"relevance\">%s</span>", note)
			}
			if excerpt := strings.TrimSpace(c.Excerpt); excerpt != "" {
				fmt.Fprintf(&sb, "<blockquote>%s</blockquote>", html.EscapeString(excerpt))
			}
			sb.WriteString("</li>\n")
		}
		sb.WriteString("</ol>\n</details>\n")
	}

	if msg.HasFollowUps() {
		sb.WriteString("<div class=\"follow-ups\"><strong>Related questions</strong>\n<ul>\n")
		for _, q := range msg.FollowUps {
			fmt.Fprintf(&sb, "<li>%s</li>\n", html.EscapeString(q))
		}
		sb.WriteString("</ul>\n</div>\n")
	}

	sb.WriteString("</div>\n")
	return sb.String()
}

// formatContent turns answer text into HTML. Fenced code is highlighted;
// everything else is escaped and split into paragraphs.
func formatContent(text, theme string) string {
	var sb strings.Builder
	last := 0
	for _, loc := range codeFenceRegex.FindAllStringSubmatchIndex(text, -1) {
		sb.WriteString(formatProse(text[last:loc[0]]))
		lang := text[loc[2]:loc[3]]
		code := text[loc[4]:loc[5]]
		sb.WriteString(highlightCode(code, lang, theme))
		last = loc[1]
	}
	sb.WriteString(formatProse(text[last:]))
	return sb.String()
}

func formatProse(text string) string {
	var out []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		p := html.EscapeString(para)
		p = inlineCodeRegex.ReplaceAllString(p, "<code class=\"inline-code\">$1</code>")
		p = boldRegex.ReplaceAllString(p, "<strong>$1</strong>")
		p = strings.ReplaceAll(p, "\n", "<br>\n")
		out = append(out, "<p>"+p+"</p>")
	}
	return strings.Join(out, "\n")
}

// highlightCode renders a code block with inline chroma styles. On any
// lexer or formatter failure the code is emitted escaped and unstyled.
func highlightCode(code, language, theme string) string {
	plain := fmt.Sprintf("<pre class=\"code-block\"><code>%s</code></pre>", html.EscapeString(code))

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return plain
	}

	var buf strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return plain
	}

	label := ""
	if language != "" {
		label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", html.EscapeString(language))
	}
	return "<div class=\"code-block\">" + label + buf.String() + "</div>"
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", Menlo, Consolas, monospace;
        }
        .dark-theme {
            --bg: #1a1b26; --panel: #24283b; --text: #c0caf5; --muted: #565f89;
            --border: #414868; --accent: #7aa2f7; --warn: #e0af68; --error: #f7768e;
        }
        .light-theme {
            --bg: #ffffff; --panel: #f6f8fa; --text: #24292e; --muted: #6a737d;
            --border: #e1e4e8; --accent: #0366d6; --warn: #b08800; --error: #d73a49;
        }
        body { font-family: var(--font-sans); background: var(--bg); color: var(--text); line-height: 1.6; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { border-bottom: 1px solid var(--border); margin-bottom: 1.5rem; padding-bottom: 1rem; }
        .metadata { color: var(--muted); font-size: 0.9rem; display: flex; gap: 1.5rem; margin-top: 0.5rem; }
        .message { background: var(--panel); border: 1px solid var(--border); border-radius: 8px; margin-bottom: 1rem; padding: 1rem; }
        .user-message { border-left: 3px solid var(--accent); }
        .failed { border-left: 3px solid var(--error); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
        .role-label { font-weight: 600; }
        .timestamp, .relevance { color: var(--muted); font-size: 0.85rem; }
        .message-content p { margin-bottom: 0.75rem; }
        .notice { color: var(--warn); font-size: 0.9rem; margin-bottom: 0.5rem; }
        .sources, .follow-ups { border-top: 1px solid var(--border); margin-top: 0.75rem; padding-top: 0.5rem; font-size: 0.9rem; }
        .sources ol, .follow-ups ul { margin-left: 1.5rem; }
        blockquote { border-left: 2px solid var(--border); color: var(--muted); margin: 0.25rem 0; padding-left: 0.75rem; }
        .code-block { margin: 0.75rem 0; overflow-x: auto; }
        .code-block pre { padding: 0.75rem; border-radius: 6px; font-family: var(--font-mono); }
        .code-lang { color: var(--muted); font-size: 0.8rem; }
        .inline-code { font-family: var(--font-mono); background: var(--bg); padding: 0 0.25rem; border-radius: 3px; }
        .footer { color: var(--muted); font-size: 0.85rem; margin-top: 2rem; text-align: center; }
    </style>
`
