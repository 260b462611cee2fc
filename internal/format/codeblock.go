// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// HighlightCodeBlocks replaces fenced code blocks in text with
// syntax-highlighted versions, leaving surrounding text untouched. This is
// the fallback path when full markdown rendering is disabled.
func HighlightCodeBlocks(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	var inCodeBlock bool
	var codeLines []string
	var language string

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			if inCodeBlock {
				result = append(result, Highlight(strings.Join(codeLines, "\n"), language))
				codeLines = nil
				language = ""
				inCodeBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inCodeBlock = true
			}
		} else if inCodeBlock {
			codeLines = append(codeLines, line)
		} else {
			result = append(result, line)
		}
	}

	// Unclosed code block: highlight what arrived. Streamed messages hit
	// this constantly since the closing fence comes last.
	if inCodeBlock && len(codeLines) > 0 {
		result = append(result, Highlight(strings.Join(codeLines, "\n"), language))
	}

	return strings.Join(result, "\n")
}

// Highlight applies syntax highlighting to code using the chroma library.
// Returns the original code if highlighting fails.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return buf.String()
}
