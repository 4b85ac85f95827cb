// Package search retrieves documentation snippets relevant to a question from
// the documentation search index.
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultTopK is the number of snippets injected into the prompt.
	DefaultTopK = 3

	// DefaultHitsPerPage is how many hits are requested from the index; a few
	// more than DefaultTopK for better coverage.
	DefaultHitsPerPage = 5

	// DefaultDocsBaseURL prefixes relative hit URLs.
	DefaultDocsBaseURL = "https://docs.prometheux.ai"

	// fallbackTitle is used for hits without a page title.
	fallbackTitle = "Documentation"

	// excerptLength is the number of characters of content kept in an excerpt.
	excerptLength = 200
)

// Hit is one raw result from the search index, in index relevance order.
type Hit struct {
	Title   string // hierarchy.lvl1, may be empty
	Content string
	URL     string // absolute or site-relative
}

// Searcher queries a search index.
type Searcher interface {
	Search(ctx context.Context, query string, hitsPerPage int) (hits []Hit, total int, err error)
}

// Snippet is a ranked documentation excerpt. It is never mutated after the
// retriever creates it.
type Snippet struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"-"`
	Excerpt string `json:"excerpt"`
}

// Result is the outcome of a retrieval. A failed retrieval is an empty Result.
type Result struct {
	Query    string
	Snippets []Snippet
}

// Len returns the number of snippets.
func (r Result) Len() int {
	return len(r.Snippets)
}

// Retriever turns a query into documentation snippets. Retrieval is best
// effort: failures are logged and yield an empty Result.
type Retriever struct {
	searcher    Searcher
	logger      *zap.Logger
	topK        int
	hitsPerPage int
	baseURL     string
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) { r.topK = k }
}

// WithDocsBaseURL overrides DefaultDocsBaseURL.
func WithDocsBaseURL(base string) RetrieverOption {
	return func(r *Retriever) { r.baseURL = strings.TrimRight(base, "/") }
}

// NewRetriever creates a Retriever backed by searcher.
func NewRetriever(searcher Searcher, logger *zap.Logger, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		searcher:    searcher,
		logger:      logger,
		topK:        DefaultTopK,
		hitsPerPage: DefaultHitsPerPage,
		baseURL:     DefaultDocsBaseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hitsPerPage < r.topK {
		r.hitsPerPage = r.topK
	}
	return r
}

// Retrieve searches for query and returns at most topK snippets. It never
// returns an error and never panics on a misbehaving Searcher.
func (r *Retriever) Retrieve(ctx context.Context, query string) (res Result) {
	res.Query = query
	if r == nil || r.searcher == nil {
		return res
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("documentation search panicked", zap.Any("panic", rec))
			res = Result{Query: query}
		}
	}()

	hits, total, err := r.searcher.Search(ctx, query, r.hitsPerPage)
	if err != nil {
		r.logger.Warn("documentation search failed", zap.String("query", query), zap.Error(err))
		return res
	}
	if len(hits) == 0 {
		r.logger.Warn("no documentation found", zap.String("query", query))
		return res
	}

	if len(hits) > r.topK {
		hits = hits[:r.topK]
	}

	res.Snippets = make([]Snippet, 0, len(hits))
	for _, h := range hits {
		res.Snippets = append(res.Snippets, r.snippet(h))
	}

	r.logger.Info("documentation retrieved",
		zap.String("query", query),
		zap.Int("total_hits", total),
		zap.Int("used", len(res.Snippets)),
		zap.Strings("sections", titles(res.Snippets)),
	)

	return res
}

func (r *Retriever) snippet(h Hit) Snippet {
	title := h.Title
	if title == "" {
		title = fallbackTitle
	}

	return Snippet{
		Title:   title,
		URL:     r.absoluteURL(h.URL),
		Content: h.Content,
		Excerpt: excerpt(h.Content),
	}
}

// absoluteURL prefixes site-relative URLs with the documentation base.
func (r *Retriever) absoluteURL(u string) string {
	if strings.HasPrefix(u, "http") {
		return u
	}
	return r.baseURL + u
}

func excerpt(content string) string {
	if utf8.RuneCountInString(content) <= excerptLength {
		return content + "..."
	}
	runes := []rune(content)
	return string(runes[:excerptLength]) + "..."
}

func titles(snippets []Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.Title
	}
	return out
}
