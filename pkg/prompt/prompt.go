// Package prompt assembles the system instruction sent with every completion.
package prompt

import (
	"strings"

	"github.com/prometheux/docschat/pkg/llm"
	"github.com/prometheux/docschat/pkg/search"
)

const (
	roleFraming = "You are a Vadalog code assistant for Prometheux."

	docsHeader = "RELEVANT DOCUMENTATION:"
	docsFooter = "Use this documentation as your primary reference for syntax, examples, and best practices."

	closing = "Provide accurate, helpful code examples based on the retrieved documentation above."
)

// Assembled is the system text plus the full message list sent upstream.
type Assembled struct {
	SystemText string
	Messages   []llm.Message // system message first
}

// Assembler builds system prompts around a fixed rules block.
type Assembler struct {
	rules string
}

// NewAssembler creates an Assembler for the given rules text.
func NewAssembler(rules string) *Assembler {
	return &Assembler{rules: strings.TrimSpace(rules)}
}

// Assemble returns the prompt for a conversation. The system text is, in
// order: role framing, rules, caller context (if any), retrieved
// documentation (if any), closing instruction. Retrieved content always
// follows the rules so explicit rules win on conflicting guidance.
func (a *Assembler) Assemble(snippets []search.Snippet, callerContext string, conversation []llm.Message) Assembled {
	system := a.SystemText(snippets, callerContext)

	messages := make([]llm.Message, 0, len(conversation)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, conversation...)

	return Assembled{SystemText: system, Messages: messages}
}

// SystemText renders the system instruction only.
func (a *Assembler) SystemText(snippets []search.Snippet, callerContext string) string {
	var b strings.Builder

	b.WriteString(roleFraming)
	b.WriteString("\n\n")

	if a.rules != "" {
		b.WriteString(a.rules)
		b.WriteString("\n\n")
	}

	if c := strings.TrimSpace(callerContext); c != "" {
		b.WriteString("USER CONTEXT: ")
		b.WriteString(c)
		b.WriteString("\n\n")
	}

	if docs := DocumentationBlock(snippets); docs != "" {
		b.WriteString(docsHeader)
		b.WriteString("\n")
		b.WriteString(docs)
		b.WriteString("\n\n")
		b.WriteString(docsFooter)
		b.WriteString("\n\n")
	}

	b.WriteString(closing)
	return b.String()
}

// DocumentationBlock renders snippets as "## title\ncontent" sections
// separated by blank lines. It returns "" for no snippets.
func DocumentationBlock(snippets []search.Snippet) string {
	sections := make([]string, 0, len(snippets))
	for _, s := range snippets {
		sections = append(sections, "## "+s.Title+"\n"+s.Content)
	}
	return strings.Join(sections, "\n\n")
}

// UserQuery wraps a single-shot question as a one-message conversation.
func UserQuery(query string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: query}}
}
