package askcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/prometheux/docschat/pkg/llm"
	"github.com/prometheux/docschat/pkg/wordstream"
	"github.com/prometheux/docschat/proxy"
)

const askLongDesc string = `Ask the docs chat server a question.

By default the structured endpoint (/api/vadalog) is used and the answer
is rendered as Markdown when writing to a terminal, followed by the
documentation pages it was based on. With --stream the conversational
endpoint (/api/docsChat) is used and the answer is printed as it arrives.

Examples:
  docschat ask "How do I compute an average?"
  docschat ask --no-docs --context "I use Postgres bindings" "How do I read a table?"
  docschat ask --stream --server https://docs.example.com "What is #TC?"`

const askShortDesc string = "Ask the docs chat server a question"

const defaultServer = "http://localhost:3000"

type askCommander struct {
	server  string
	context string
	noDocs  bool
	stream  bool
	raw     bool
	timeout time.Duration
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Underline(true)
	metaStyle    = lipgloss.NewStyle().Faint(true)
)

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&cmder.server, "server", defaultServer, "Base URL of the docs chat server")
	cmd.Flags().StringVar(&cmder.context, "context", "", "Extra context for the assistant")
	cmd.Flags().BoolVar(&cmder.noDocs, "no-docs", false, "Do not search the documentation")
	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Use the streaming conversational endpoint")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print Markdown without rendering")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 2*time.Minute, "Request timeout")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	server := strings.TrimRight(c.server, "/")
	out := cmd.OutOrStdout()

	if c.stream {
		return c.askStream(ctx, out, server, question)
	}
	return c.askStructured(ctx, out, server, question)
}

func (c *askCommander) askStructured(ctx context.Context, out io.Writer, server, question string) error {
	includeDocs := !c.noDocs
	body, err := json.Marshal(proxy.SingleShotRequest{
		Query:       question,
		Context:     c.context,
		IncludeDocs: &includeDocs,
	})
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	resp, err := post(ctx, server+"/api/vadalog", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	var answer proxy.SingleShotResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}

	tty, width := terminal(out)
	styled := tty && !c.raw

	text := answer.Response
	if styled {
		text, err = renderMarkdown(answer.Response, width)
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(out, strings.TrimRight(text, "\n"))

	if len(answer.RelevantDocs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, style(styled, headingStyle, "Sources"))
		for _, d := range answer.RelevantDocs {
			fmt.Fprintf(out, "  - %s %s\n", d.Title, style(styled, urlStyle, d.URL))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, style(styled, metaStyle, fmt.Sprintf("%s · %s · tokens: %v · code examples: %d",
		answer.Metadata.Provider, answer.Metadata.Model, answer.Metadata.TokensUsed, len(answer.CodeExamples))))

	return nil
}

func (c *askCommander) askStream(ctx context.Context, out io.Writer, server, question string) error {
	body, err := json.Marshal(proxy.ConversationRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: question}},
	})
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	resp, err := post(ctx, server+"/api/docsChat", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		chunk, err := wordstream.Decode(line)
		if err != nil {
			return err
		}
		fmt.Fprint(out, chunk)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return resp, nil
}

// serverError turns an error response into an error, preferring the server's
// details or message over the raw body.
func serverError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		detail := e.Message
		if detail == "" {
			detail = e.Details
		}
		return fmt.Errorf("server returned %d: %s: %s", resp.StatusCode, e.Error, detail)
	}

	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(raw))
}

// terminal reports whether out is a terminal and, if so, its width.
func terminal(out io.Writer) (bool, int) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return true, width
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("could not create renderer: %w", err)
	}
	return r.Render(md)
}

func style(enabled bool, s lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return s.Render(text)
}
