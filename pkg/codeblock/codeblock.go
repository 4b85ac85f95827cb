// Package codeblock extracts fenced code regions from model answers.
package codeblock

import (
	"regexp"
	"strings"
)

const (
	// Language is the label reported for every extracted block.
	Language = "vadalog"

	// Description is the caption reported for every extracted block.
	Description = "Vadalog code example"
)

const fence = "```"

// openRe matches an opening fence at the start of a line and captures its
// language tag.
var openRe = regexp.MustCompile("(?m)^```([^`\n]*)\n")

// languages are the fence tags whose contents are returned.
var languages = map[string]bool{
	"":        true,
	"vadalog": true,
	"prolog":  true,
}

// Block is one fenced region.
type Block struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Extract returns the vadalog, prolog and untagged fenced regions of text in
// order of appearance, with surrounding whitespace trimmed. Fences are paired
// opener to closer, so blocks in other languages are skipped whole. It
// returns an empty, non-nil slice when there are none so the JSON envelope
// carries [] rather than null.
func Extract(text string) []Block {
	blocks := []Block{}

	rest := text
	for {
		loc := openRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		tag := strings.TrimSpace(rest[loc[2]:loc[3]])

		body := rest[loc[1]:]
		end := strings.Index(body, fence)
		if end < 0 {
			// Unterminated fence.
			break
		}

		if languages[tag] {
			blocks = append(blocks, Block{
				Language:    Language,
				Code:        strings.TrimSpace(body[:end]),
				Description: Description,
			})
		}
		rest = body[end+len(fence):]
	}

	return blocks
}
