// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management command.

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/obelisk-tui/internal/api"
	"github.com/jeranaias/obelisk-tui/internal/config"
	"github.com/jeranaias/obelisk-tui/internal/model"
	"github.com/jeranaias/obelisk-tui/internal/state"
	"github.com/jeranaias/obelisk-tui/internal/util"
)

// HandleSessionsCommand dispatches the sessions subcommands.
func HandleSessionsCommand(cfg *config.Config, args Args) error {
	client := newBackendClient(cfg, args)
	store := newStateStore()
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not load saved state: %v\n",
			warningStyle.Render("[Warning]"), err)
	}

	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "list", "ls":
		return listSessions(client, store, cfg, parser, args.JSON)

	case "show":
		id := parser.Positional(1)
		if id == "" {
			return fmt.Errorf("usage: obelisk sessions show <id>")
		}
		return showSession(client, id, args.JSON)

	case "new", "create":
		name := JoinPositionalArgs(parser, 1)
		return createSession(client, store, name, args.JSON)

	case "delete", "rm":
		id := parser.Positional(1)
		if id == "" {
			return fmt.Errorf("usage: obelisk sessions delete <id> [--confirm]")
		}
		return deleteSession(client, store, id, parser.BoolFlag("confirm"))

	default:
		return fmt.Errorf("unknown sessions subcommand: %s", parser.Subcommand())
	}
}

// listSessions prints one page of the session listing. The page position
// persists so repeated invocations continue where the last one stopped.
func listSessions(client *api.Client, store *state.Store, cfg *config.Config, parser *ArgParser, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved := store.Pagination()
	page := parser.FlagIntOrDefault("page", saved.Page)
	pageSize := parser.FlagIntOrDefault("page-size", saved.PageSize)
	if cfg.Chat.PageSize > 0 && !parser.HasFlag("page-size") {
		pageSize = cfg.Chat.PageSize
	}

	result, err := client.ListSessions(ctx, page, pageSize)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if asJSON {
		return printJSON(result)
	}

	renderSessionPage(result, store.CurrentSessionID())

	if err := store.SetPagination(state.Pagination{Page: result.Page, PageSize: pageSize}); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not save list position: %v\n",
			warningStyle.Render("[Warning]"), err)
	}
	return nil
}

// renderSessionPage prints a session page as an aligned table. The active
// session is marked with an asterisk.
func renderSessionPage(page *api.SessionPage, currentID string) {
	fmt.Println()
	fmt.Println(headerStyle.Render("Sessions"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 60)))

	if len(page.Sessions) == 0 {
		fmt.Println(infoStyle.Render("  [No sessions]"))
		fmt.Println()
		return
	}

	for _, s := range page.Sessions {
		marker := " "
		if s.Identifier() == currentID {
			marker = commandStyle.Render("*")
		}

		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		name = util.TruncateWidth(name, 28)

		updated := ""
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Format("2006-01-02 15:04")
		}

		fmt.Printf("%s %s  %s  %s  %s\n",
			marker,
			commandStyle.Render(util.PadRight(util.TruncateWidth(s.Identifier(), 14), 14)),
			util.PadRight(name, 28),
			infoStyle.Render(fmt.Sprintf("%3d msgs", s.MessageCount)),
			infoStyle.Render(updated))
	}

	fmt.Println()
	if page.TotalPages > 1 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("Page %d of %d (%d sessions). Use --page N.",
			page.Page, page.TotalPages, page.Total)))
		fmt.Println()
	}
}

// showSession prints one session with its transcript.
func showSession(client *api.Client, id string, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := client.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	if asJSON {
		return printJSON(doc)
	}

	summary := doc.Summary()

	fmt.Println()
	fmt.Println(headerStyle.Render("Session " + summary.ID))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 40)))
	if summary.Name != "" {
		fmt.Printf("  %s %s\n", infoStyle.Render("Name:"), summary.Name)
	}
	if summary.Model != "" {
		fmt.Printf("  %s %s\n", infoStyle.Render("Model:"), commandStyle.Render(summary.Model))
	}
	fmt.Printf("  %s %d messages, %d turns\n",
		infoStyle.Render("Size:"), summary.MessageCount, summary.TurnCount)
	if summary.TokensInput > 0 || summary.TokensOutput > 0 {
		fmt.Printf("  %s %d in / %d out\n",
			infoStyle.Render("Tokens:"), summary.TokensInput, summary.TokensOutput)
	}
	fmt.Println()

	for _, msg := range doc.Messages() {
		label := infoStyle.Render(msg.Role.DisplayName())
		switch msg.Role {
		case model.RoleUser:
			label = promptStyle.Render(msg.Role.DisplayName())
		case model.RoleAssistant:
			label = assistantLabelStyle.Render(msg.Role.DisplayName())
		}
		fmt.Println(label)
		fmt.Println(msg.DisplayContent())
		fmt.Println()
	}

	return nil
}

// createSession creates a session and makes it current.
func createSession(client *api.Client, store *state.Store, name string, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc, err := client.CreateSession(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if err := store.SetCurrentSession(doc.SessionIdentifier()); err != nil {
		fmt.Fprintf(os.Stderr, "%s Could not save session state: %v\n",
			warningStyle.Render("[Warning]"), err)
	}

	if asJSON {
		return printJSON(doc)
	}

	fmt.Printf("%s Created session %s\n",
		commandStyle.Render("[OK]"),
		doc.SessionIdentifier())
	return nil
}

// deleteSession deletes a session, prompting unless --confirm was given.
func deleteSession(client *api.Client, store *state.Store, id string, confirmed bool) error {
	if !confirmed {
		fmt.Printf("Delete session %s? [y/N] ", id)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		ok, err := ParseBoolString(answer)
		if err != nil || !ok {
			fmt.Println(infoStyle.Render("Aborted."))
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	// Forget the deleted session if it was current
	if store.CurrentSessionID() == id {
		if err := store.SetCurrentSession(""); err != nil {
			fmt.Fprintf(os.Stderr, "%s Could not save session state: %v\n",
				warningStyle.Render("[Warning]"), err)
		}
	}

	fmt.Printf("%s Deleted session %s\n",
		commandStyle.Render("[OK]"),
		id)
	return nil
}

// printJSON writes a value as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
