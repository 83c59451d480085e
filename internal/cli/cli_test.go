// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/taxease-tui/internal/api"
	"github.com/jeranaias/taxease-tui/internal/config"
	"github.com/jeranaias/taxease-tui/internal/controller"
	"github.com/jeranaias/taxease-tui/internal/model"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"show", "--limit", "50"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("limit") != "50" {
					t.Errorf("Flag(limit) = %q, want %q", p.Flag("limit"), "50")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--format=html"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "html" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "html")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"show", "--json"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"search", "error", "in", "production"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 4 {
					t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
				}
				joined := strings.Join(p.PositionalFrom(1), " ")
				if joined != "error in production" {
					t.Errorf("PositionalFrom(1) joined = %q, want %q", joined, "error in production")
				}
			},
		},
		{
			name:    "mixed flags and positional",
			args:    []string{"ask", "--conversation", "abc123", "Hello", "world"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("conversation") != "abc123" {
					t.Errorf("Flag(conversation) = %q, want %q", p.Flag("conversation"), "abc123")
				}
				// Positional should be: ask, Hello, world
				if p.Positional(1) != "Hello" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "Hello")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		flagName   string
		defaultVal int
		want       int
	}{
		{
			name:       "flag present",
			args:       []string{"cmd", "--limit", "10"},
			flagName:   "limit",
			defaultVal: 5,
			want:       10,
		},
		{
			name:       "flag missing uses default",
			args:       []string{"cmd"},
			flagName:   "limit",
			defaultVal: 5,
			want:       5,
		},
		{
			name:       "invalid int uses default",
			args:       []string{"cmd", "--limit", "abc"},
			flagName:   "limit",
			defaultVal: 5,
			want:       5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			got := parser.FlagIntOrDefault(tt.flagName, tt.defaultVal)
			if got != tt.want {
				t.Errorf("FlagIntOrDefault(%q, %d) = %d, want %d", tt.flagName, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--verbose", "--limit", "50"})

	if !parser.HasFlag("verbose") {
		t.Error("HasFlag(verbose) should be true")
	}
	if !parser.HasFlag("limit") {
		t.Error("HasFlag(limit) should be true")
	}
	if parser.HasFlag("nonexistent") {
		t.Error("HasFlag(nonexistent) should be false")
	}
}

func TestParseBoolString(t *testing.T) {
	trueValues := []string{"true", "TRUE", "True", "yes", "YES", "y", "Y", "1", "on", "ON"}
	falseValues := []string{"false", "FALSE", "False", "no", "NO", "n", "N", "0", "off", "OFF"}

	for _, v := range trueValues {
		t.Run("true_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if !got {
				t.Errorf("ParseBoolString(%q) = false, want true", v)
			}
		})
	}

	for _, v := range falseValues {
		t.Run("false_"+v, func(t *testing.T) {
			got, err := ParseBoolString(v)
			if err != nil {
				t.Errorf("ParseBoolString(%q) error = %v", v, err)
			}
			if got {
				t.Errorf("ParseBoolString(%q) = true, want false", v)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseBoolString("maybe")
		if err == nil {
			t.Error("ParseBoolString(maybe) should error")
		}
	})
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{
			name:    "no args starts the TUI",
			argv:    nil,
			wantCmd: CmdTUI,
		},
		{
			name:    "ask joins the question",
			argv:    []string{"ask", "Is", "VAT", "changing?"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "Is VAT changing?" {
					t.Errorf("Query = %q, want %q", a.Query, "Is VAT changing?")
				}
			},
		},
		{
			name:    "ask skips the conversation flag",
			argv:    []string{"ask", "--conversation", "abc", "And", "PAYE?"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "And PAYE?" {
					t.Errorf("Query = %q, want %q", a.Query, "And PAYE?")
				}
			},
		},
		{
			name:    "global flags anywhere",
			argv:    []string{"status", "--json", "-v", "--api-url", "http://localhost:8000/api/v1"},
			wantCmd: CmdStatus,
			validate: func(t *testing.T, a Args) {
				if !a.JSON || !a.Verbose {
					t.Errorf("JSON=%v Verbose=%v, want both true", a.JSON, a.Verbose)
				}
				if a.APIURL != "http://localhost:8000/api/v1" {
					t.Errorf("APIURL = %q", a.APIURL)
				}
			},
		},
		{
			name:    "api-url with equals",
			argv:    []string{"--api-url=https://api.example.ng", "whoami"},
			wantCmd: CmdWhoami,
			validate: func(t *testing.T, a Args) {
				if a.APIURL != "https://api.example.ng" {
					t.Errorf("APIURL = %q", a.APIURL)
				}
			},
		},
		{
			name:    "conversations subcommand",
			argv:    []string{"convs", "Export", "2", "--format", "html"},
			wantCmd: CmdConversations,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "export" {
					t.Errorf("Subcommand = %q, want export", a.Subcommand)
				}
				if len(a.Raw) != 4 {
					t.Errorf("Raw = %v, want 4 entries", a.Raw)
				}
			},
		},
		{
			name:    "config set joins the value",
			argv:    []string{"config", "set", "ui.theme", "light"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" || a.ConfigKey != "ui.theme" || a.ConfigVal != "light" {
					t.Errorf("got %q %q %q", a.Subcommand, a.ConfigKey, a.ConfigVal)
				}
			},
		},
		{
			name:    "flags after -- are not global",
			argv:    []string{"ask", "--", "--json", "is", "literal"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.JSON {
					t.Error("JSON should be false after --")
				}
				if a.Query != "--json is literal" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{name: "register alias", argv: []string{"register"}, wantCmd: CmdSignup},
		{name: "me alias", argv: []string{"me"}, wantCmd: CmdWhoami},
		{name: "logout", argv: []string{"logout"}, wantCmd: CmdLogout},
		{name: "login", argv: []string{"login"}, wantCmd: CmdLogin},
		{name: "chat", argv: []string{"chat"}, wantCmd: CmdChat},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"-h"}, wantCmd: CmdHelp},
		{name: "unknown", argv: []string{"frobnicate"}, wantCmd: CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("ParseArgs(%v) command = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestArgParser_BoolNames(t *testing.T) {
	parser := NewArgParser([]string{"show", "--local", "3"}, "local")
	if !parser.BoolFlag("local") {
		t.Error("BoolFlag(local) should be true")
	}
	if parser.Positional(1) != "3" {
		t.Errorf("Positional(1) = %q, want 3", parser.Positional(1))
	}

	// Without the bool name the value is swallowed.
	parser = NewArgParser([]string{"show", "--local", "3"})
	if parser.Flag("local") != "3" {
		t.Errorf("Flag(local) = %q, want 3", parser.Flag("local"))
	}
}

// =============================================================================
// ERROR HANDLING TESTS (errors.go, app.go)
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneralError},
		{"validation", NewValidationError("limit", "x", "bad"), ExitUsageError},
		{"config", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "api.base_url", Message: "bad"}}), ExitUsageError},
		{"not logged in", ErrNotLoggedIn, ExitAuthError},
		{"not ready", fmt.Errorf("%w: down", errBackendNotReady), ExitNotReady},
		{"controller not ready", controller.ErrNotReady, ExitNotReady},
		{"api unauthorized", &api.Error{Kind: api.KindUnauthorized, Op: "login", Status: 401}, ExitAuthError},
		{"api network", &api.Error{Kind: api.KindNetwork, Op: "health"}, ExitNotReady},
		{"api validation", &api.Error{Kind: api.KindValidation, Op: "signup", Status: 400}, ExitUsageError},
		{"api server", &api.Error{Kind: api.KindServer, Op: "send message", Status: 500}, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSendFailure(t *testing.T) {
	tests := []struct {
		banner string
		want   int
	}{
		{controller.BannerUnauthorized, ExitAuthError},
		{controller.BannerNetwork, ExitNotReady},
		{controller.BannerNotReady, ExitNotReady},
		{controller.BannerServer, ExitGeneralError},
		{"", ExitGeneralError},
	}
	for _, tt := range tests {
		err := sendFailure(tt.banner)
		if err == nil {
			t.Fatalf("sendFailure(%q) = nil", tt.banner)
		}
		if got := GetExitCode(err); got != tt.want {
			t.Errorf("sendFailure(%q) exit code = %d, want %d", tt.banner, got, tt.want)
		}
		if tt.banner != "" && !strings.Contains(err.Error(), tt.banner) {
			t.Errorf("sendFailure(%q) = %q, should carry the banner", tt.banner, err)
		}
	}
}

func TestDisabledAsNegative(t *testing.T) {
	if got := disabledAsNegative(0); got != -1 {
		t.Errorf("disabledAsNegative(0) = %d, want -1", got)
	}
	if got := disabledAsNegative(3); got != 3 {
		t.Errorf("disabledAsNegative(3) = %d, want 3", got)
	}
	if got := disabledAsNegativeFloat(0); got != -1 {
		t.Errorf("disabledAsNegativeFloat(0) = %v, want -1", got)
	}
	if got := disabledAsNegativeFloat(2.5); got != 2.5 {
		t.Errorf("disabledAsNegativeFloat(2.5) = %v, want 2.5", got)
	}
}

func TestIsRejection(t *testing.T) {
	if !isRejection(controller.ErrSendInFlight) {
		t.Error("ErrSendInFlight should be a rejection")
	}
	if !isRejection(fmt.Errorf("wrapped: %w", controller.ErrEmptyMessage)) {
		t.Error("wrapped ErrEmptyMessage should be a rejection")
	}
	if isRejection(errors.New("network down")) {
		t.Error("arbitrary errors are not rejections")
	}
}

// =============================================================================
// CONVERSATION HELPERS TESTS (conversations.go, ask.go)
// =============================================================================

func testSummaries() []model.ConversationSummary {
	now := time.Now()
	return []model.ConversationSummary{
		{ID: "c0ffee11-aaaa", Title: "VAT on food items", UpdatedAt: now},
		{ID: "deadbeef-bbbb", Title: "Small company threshold", UpdatedAt: now.Add(-time.Hour)},
		{ID: "facade00-cccc", Title: "", UpdatedAt: now.Add(-2 * time.Hour)},
	}
}

func TestResolveConversationArg(t *testing.T) {
	list := testSummaries()
	tests := []struct {
		arg     string
		want    model.ConversationID
		wantErr bool
	}{
		{arg: "1", want: "c0ffee11-aaaa"},
		{arg: "3", want: "facade00-cccc"},
		{arg: "0", wantErr: true},
		{arg: "4", wantErr: true},
		{arg: "deadbeef-bbbb", want: "deadbeef-bbbb"},
		{arg: "deadbeef", want: "deadbeef-bbbb"},
		{arg: "threshold", want: "deadbeef-bbbb"},
		{arg: "zzzzqqq", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := resolveConversationArg(list, tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("resolveConversationArg(%q) = %q, want error", tt.arg, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveConversationArg(%q) error = %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("resolveConversationArg(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestPrintConversationList(t *testing.T) {
	var buf bytes.Buffer
	printConversationList(&buf, testSummaries(), "deadbeef-bbbb")
	out := buf.String()
	for _, want := range []string{"VAT on food items", "Small company threshold", model.DefaultTitle, "deadbeef"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printConversationList(&buf, nil, "")
	if !strings.Contains(buf.String(), "No conversations") {
		t.Errorf("empty list output = %q", buf.String())
	}
}

func TestPrintAnswer(t *testing.T) {
	dist := 0.25
	msg := &model.Message{
		Role:              model.RoleAssistant,
		Text:              "Basic food items remain zero-rated.",
		MisconceptionFlag: true,
		Sources: []model.Citation{
			{BillName: "Nigeria Tax Bill", Section: "186", Page: "112", Excerpt: "basic food items", Relevance: &dist},
		},
		FollowUps: []string{"What counts as basic food?"},
	}

	var buf bytes.Buffer
	printAnswer(&buf, msg, 80, false)
	out := buf.String()

	for _, want := range []string{
		"misconception",
		"Basic food items remain zero-rated.",
		"Nigeria Tax Bill, s.186, p.112",
		"75% match",
		"1. What counts as basic food?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("answer output missing %q:\n%s", want, out)
		}
	}
}

func TestAskData_EmptyCollections(t *testing.T) {
	msg := &model.Message{Role: model.RoleAssistant, Text: "ok"}
	data := askData("conv-1", "q", msg, 1500*time.Millisecond)
	if data.Sources == nil || data.Related == nil {
		t.Error("sources and related questions should encode as empty arrays")
	}
	if data.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", data.DurationMs)
	}
	if data.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q", data.ConversationID)
	}
}

func TestLastEntry(t *testing.T) {
	if lastEntry(nil) != nil {
		t.Error("lastEntry(nil) should be nil")
	}
	a := model.NewUserMessage("q")
	b := model.NewFailureMessage(controller.FailureText)
	if got := lastEntry([]*model.Message{a, b}); got != b {
		t.Error("lastEntry should return the final message")
	}
}

func TestThinkingIndicator_NilSafe(t *testing.T) {
	var spin *thinkingIndicator
	spin.Stop()

	var buf bytes.Buffer
	spin = startThinking(&buf)
	spin.Stop()
	if !strings.Contains(buf.String(), "Thinking") {
		t.Errorf("indicator output = %q", buf.String())
	}
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestArgParser_EmptyArgs(t *testing.T) {
	parser := NewArgParser([]string{})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if parser.PositionalCount() != 0 {
		t.Errorf("PositionalCount() = %d, want 0", parser.PositionalCount())
	}
}

func TestArgParser_OnlyFlags(t *testing.T) {
	parser := NewArgParser([]string{"--verbose", "--json"})
	if parser.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", parser.Subcommand())
	}
	if !parser.BoolFlag("verbose") {
		t.Error("BoolFlag(verbose) should be true")
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) should be true")
	}
}

func TestArgParser_FlagOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"cmd", "--present", "value"})

	if parser.FlagOrDefault("present", "default") != "value" {
		t.Error("FlagOrDefault should return actual value when present")
	}
	if parser.FlagOrDefault("missing", "default") != "default" {
		t.Error("FlagOrDefault should return default when missing")
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser_Simple(b *testing.B) {
	args := []string{"ask", "What is the new VAT rate?"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}

func BenchmarkArgParser_Complex(b *testing.B) {
	args := []string{"export", "3", "--format", "html", "--output", "/tmp/out", "--no-sources", "--open", "--theme", "light"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}

func BenchmarkArgParser_ManyFlags(b *testing.B) {
	args := []string{
		"cmd",
		"--flag1", "value1",
		"--flag2", "value2",
		"--flag3", "value3",
		"--flag4", "value4",
		"--flag5", "value5",
		"--bool1",
		"--bool2",
		"--bool3",
		"positional1",
		"positional2",
	}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}
