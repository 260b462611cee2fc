// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Unified argument parsing for obelisk commands.
//
// Each command shares one parser so flags, subcommands, and positional
// arguments behave identically everywhere.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser provides unified argument parsing for CLI commands.
// It handles multiple flag formats consistently:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value needed)
//   - Positional arguments: arguments without flags
//   - Subcommands: first positional argument
type ArgParser struct {
	subcommand string            // First positional arg (e.g., "list", "show", "new")
	flags      map[string]string // String flags (--key=value)
	boolFlags  map[string]bool   // Boolean flags (--json)
	positional []string          // All positional arguments including subcommand
	raw        []string          // Original raw arguments
}

// NewArgParser creates a new argument parser from raw arguments.
//
// Supported flag formats:
//
//	--flag value     Long flag with space-separated value
//	--flag=value     Long flag with equals sign
//	-f value         Short flag with space-separated value
//	--flag           Boolean flag (no value)
//
// Example:
//
//	args := NewArgParser([]string{"list", "--page", "2", "--page-size=50", "--json"})
//	args.Subcommand()         // "list"
//	args.Flag("page")         // "2"
//	args.Flag("page-size")    // "50"
//	args.BoolFlag("json")     // true
func NewArgParser(raw []string) *ArgParser {
	parser := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
		raw:        raw,
	}

	i := 0
	for i < len(raw) {
		arg := raw[i]

		if strings.HasPrefix(arg, "-") {
			// Handle --flag=value format
			if strings.Contains(arg, "=") {
				parts := strings.SplitN(arg, "=", 2)
				flagName := strings.TrimLeft(parts[0], "-")
				flagValue := parts[1]

				// Boolean flags can be explicit: --json=true, --json=false
				if flagValue == "true" || flagValue == "false" {
					parser.boolFlags[flagName] = flagValue == "true"
				} else {
					parser.flags[flagName] = flagValue
				}
				i++
				continue
			}

			flagName := strings.TrimLeft(arg, "-")

			// Next arg is the value unless it is itself a flag
			if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
				parser.flags[flagName] = raw[i+1]
				i += 2
			} else {
				parser.boolFlags[flagName] = true
				i++
			}
		} else {
			parser.positional = append(parser.positional, arg)
			i++
		}
	}

	if len(parser.positional) > 0 {
		parser.subcommand = parser.positional[0]
	}

	return parser
}

// Subcommand returns the first positional argument (subcommand).
// Returns empty string if no positional arguments.
//
// Example: "sessions show" -> "show"
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag, or empty string if not set.
// Accepts names with or without leading dashes.
func (p *ArgParser) Flag(name string) string {
	if val, ok := p.flags[name]; ok {
		return val
	}

	name = strings.TrimLeft(name, "-")
	if val, ok := p.flags[name]; ok {
		return val
	}

	return ""
}

// FlagOrDefault returns the flag value or a default if not found.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// FlagInt returns the flag value as an integer.
// Returns 0 and error if flag is not a valid integer.
func (p *ArgParser) FlagInt(name string) (int, error) {
	val := p.Flag(name)
	if val == "" {
		return 0, fmt.Errorf("flag %s not found", name)
	}
	return strconv.Atoi(val)
}

// FlagIntOrDefault returns the flag value as an integer or a default.
// Returns default if flag not found or not a valid integer.
func (p *ArgParser) FlagIntOrDefault(name string, defaultValue int) int {
	val, err := p.FlagInt(name)
	if err != nil {
		return defaultValue
	}
	return val
}

// BoolFlag returns the value of a boolean flag, false if not set.
// Accepts names with or without leading dashes.
func (p *ArgParser) BoolFlag(name string) bool {
	if val, ok := p.boolFlags[name]; ok {
		return val
	}

	name = strings.TrimLeft(name, "-")
	if val, ok := p.boolFlags[name]; ok {
		return val
	}

	return false
}

// Positional returns the positional argument at the given index.
// Returns empty string if index out of bounds. Index 0 is the subcommand.
//
// Example: "sessions show sess-42"
//
//	args.Positional(0)  // "show"
//	args.Positional(1)  // "sess-42"
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments starting from index.
// Useful for joining remaining args into a session name or message.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag returns true if the flag exists (either as string or bool flag).
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Raw returns the original raw arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseBoolString parses a boolean from various string representations.
// Accepts: true/false, yes/no, y/n, 1/0, on/off (case-insensitive)
func ParseBoolString(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// JoinPositionalArgs joins positional arguments from the given index into a
// single string. Used by commands that accept multi-word names.
//
// Example: "sessions new api design notes" -> "api design notes"
func JoinPositionalArgs(parser *ArgParser, startIndex int) string {
	return strings.Join(parser.PositionalFrom(startIndex), " ")
}
