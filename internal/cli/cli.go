// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing for obelisk.

package cli

import (
	"fmt"
	"os"
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
	CmdChat
	CmdSessions
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Backend   string // --backend URL overrides the configured base URL
	SessionID string // --session ID resumes a specific session
	Model     string // --model NAME overrides the generation model
	JSON      bool   // Output in JSON format where a command supports it
	Verbose   bool   // Log requests and responses to stderr

	// Raw args (remaining after command and global flag parsing)
	Raw []string
}

const usageText = `obelisk - terminal client for the Obelisk chat backend

Usage:
  obelisk                       Start the full-screen TUI (default)
  obelisk chat                  Line-oriented chat REPL
  obelisk sessions [subcommand] Session management
  obelisk version               Show version
  obelisk help                  Show this help

Global flags:
  --backend URL                 Backend base URL (overrides config)
  --session ID                  Resume the given session
  --model NAME                  Generation model override
  --verbose                     Log HTTP requests to stderr

Session commands:
  obelisk sessions              List sessions (alias: list)
    --page N                    Page number (default: saved position)
    --page-size N               Sessions per page
    --json                      Output in JSON format
  obelisk sessions show <id>    Show one session with its transcript
  obelisk sessions new [name]   Create a session
  obelisk sessions delete <id>  Delete a session
    --confirm                   Skip the confirmation prompt

Chat REPL commands (inside obelisk chat):
  /help                         Show REPL commands
  /history                      Show the session transcript
  /sessions [page]              List sessions
  /session <id>                 Switch to another session
  /new [name]                   Start a fresh session
  /model [name]                 Show or switch the generation model
  /markdown on|off              Toggle markdown rendering of replies
  /status                       Show backend and session status
  /quit                         Exit

Configuration is read from ~/.obelisk/config.toml (or config.json).

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("obelisk version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split out from Parse for testing.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	// No command defaults to the TUI
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "chat", "repl":
		return CmdChat, parsed

	case "session", "sessions":
		return CmdSessions, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts the flags that apply to every command and
// returns the remaining arguments.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))

	i := 0
	for i < len(argv) {
		arg := argv[i]

		switch {
		case arg == "--backend" || arg == "-b":
			if i+1 < len(argv) {
				args.Backend = argv[i+1]
				i += 2
				continue
			}
			i++

		case strings.HasPrefix(arg, "--backend="):
			args.Backend = strings.TrimPrefix(arg, "--backend=")
			i++

		case arg == "--session":
			if i+1 < len(argv) {
				args.SessionID = argv[i+1]
				i += 2
				continue
			}
			i++

		case strings.HasPrefix(arg, "--session="):
			args.SessionID = strings.TrimPrefix(arg, "--session=")
			i++

		case arg == "--model" || arg == "-m":
			if i+1 < len(argv) {
				args.Model = argv[i+1]
				i += 2
				continue
			}
			i++

		case strings.HasPrefix(arg, "--model="):
			args.Model = strings.TrimPrefix(arg, "--model=")
			i++

		case arg == "--json":
			args.JSON = true
			i++

		case arg == "--verbose":
			args.Verbose = true
			i++

		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	return remaining, args
}
