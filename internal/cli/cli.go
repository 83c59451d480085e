// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdConversations
	CmdLogin
	CmdSignup
	CmdLogout
	CmdWhoami
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Verbose bool
	JSON    bool
	APIURL  string

	// Command-specific
	Name       string // command word as typed
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args after the command word
	Raw []string
}

const usageText = `taxease - ask questions about the Nigerian tax reform bills

Answers come from the TaxEase AI backend and cite the bill, section and
page they are grounded on.

Usage:
  taxease                          Start the chat TUI (default)
  taxease ask "question"           Ask a single question
  taxease chat                     Line-based chat with history
  taxease conversations [cmd]      Manage stored conversations
  taxease login | signup | logout  Account management
  taxease whoami                   Show the signed-in account
  taxease status                   Backend health and account summary
  taxease config [show|get|set|path|keys]
  taxease version

Conversation Commands:
  taxease conversations list             List conversations (newest first)
    --local                              List the local archive instead
  taxease conversations show <n|id>      Print a transcript
    --local                              Read from the local archive
  taxease conversations rename <n|id> <title>
  taxease conversations delete <n|id>    Delete on the server and locally
  taxease conversations export <n|id>    Write a transcript file
    --format markdown|html|json          Export format (default: markdown)
    --output DIR                         Output directory (default: .)
    --no-sources                         Leave citations out
    --open                               Open the file afterwards
  taxease conversations search <text>    Search the local archive
    --limit N                            Maximum results (default: 20)

Ask Options:
  --conversation ID                      Continue a conversation instead of starting one
  -                                      Read the question from stdin

Global Flags:
  -v, --verbose                          Log to stderr as well as the log file
  --json                                 Machine-readable output
  --api-url URL                          Backend API root for this run

Environment:
  TAXEASE_API_URL, VITE_API_URL          Backend API root
  TAXEASE_TIMEOUT                        Request timeout (seconds or duration)
  TAXEASE_LOG_LEVEL                      debug, info, warn, error
  TAXEASE_HOME                           Config directory (default: ~/.taxease)
  TAXEASE_PASSPHRASE                     Passphrase for encrypted credentials
  TAXEASE_TOKEN                          Use this access token, skip stored login

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("taxease version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Name = cmd
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask", "a":
		parser := NewArgParser(remaining)
		parsedArgs.Query = JoinPositionalArgs(parser, 0)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "conversations", "conversation", "convs", "c":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConversations, parsedArgs

	case "login":
		return CmdLogin, parsedArgs

	case "signup", "register":
		return CmdSignup, parsedArgs

	case "logout":
		return CmdLogout, parsedArgs

	case "whoami", "me":
		return CmdWhoami, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from anywhere in the argument list.
// Flags after a bare "--" are left alone.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	remaining := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			remaining = append(remaining, args[i:]...)
			return remaining, parsed
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--api-url" && i+1 < len(args):
			i++
			parsed.APIURL = args[i]
		case strings.HasPrefix(arg, "--api-url="):
			parsed.APIURL = strings.TrimPrefix(arg, "--api-url=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	exitOnError(HandleAskCommand(args), args.JSON)
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	exitOnError(HandleChatCommand(args), args.JSON)
}

// HandleUnknown reports an unknown command.
func HandleUnknown(args Args) {
	exitOnError(NewValidationErrorWithExample("command", args.Name, "unknown command", "taxease help"), args.JSON)
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		NewJSONResponse("version", data).Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// exitOnError displays err and exits with its exit code. nil is a no-op.
func exitOnError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	HandleErrorAndExit(err, jsonMode)
}
