// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for scripting. Every command that prints data
// wraps it in the same envelope when --json is given.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/taxease-tui/internal/model"
)

// JSONResponse is the response envelope for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// StderrPrint prints human-readable output to stderr in JSON mode.
func StderrPrint(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData is returned by the ask command.
type AskData struct {
	ConversationID string           `json:"conversation_id"`
	Question       string           `json:"question"`
	Answer         string           `json:"answer"`
	Failed         bool             `json:"failed,omitempty"`
	Misconception  bool             `json:"misconception_detected"`
	Sources        []model.Citation `json:"sources"`
	Related        []string         `json:"related_questions"`
	DurationMs     int64            `json:"duration_ms"`
}

// StatusData is returned by the status command.
type StatusData struct {
	Backend StatusBackendInfo `json:"backend"`
	Account StatusAccountInfo `json:"account"`
	Archive StatusArchiveInfo `json:"archive"`
	Config  string            `json:"config_path"`
	LogFile string            `json:"log_path"`
}

// StatusBackendInfo describes the health probe.
type StatusBackendInfo struct {
	URL           string `json:"url"`
	State         string `json:"state"`
	Status        string `json:"status"`
	Message       string `json:"message,omitempty"`
	DocumentCount int    `json:"document_count"`
	LatencyMs     int64  `json:"latency_ms"`
}

// StatusAccountInfo describes the stored login.
type StatusAccountInfo struct {
	LoggedIn      bool   `json:"logged_in"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Verified      bool   `json:"verified"`
	Conversations int    `json:"conversations"`
	Error         string `json:"error,omitempty"`
}

// StatusArchiveInfo describes the local archive.
type StatusArchiveInfo struct {
	Enabled       bool   `json:"enabled"`
	Path          string `json:"path,omitempty"`
	Conversations int    `json:"conversations"`
}

// ConversationData is one transcript for `conversations show`.
type ConversationData struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Messages []*model.Message `json:"messages"`
}

// WhoamiData is returned by whoami.
type WhoamiData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}
