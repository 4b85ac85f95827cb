package proxy

import (
	"github.com/prometheux/docschat/pkg/codeblock"
	"github.com/prometheux/docschat/pkg/llm"
	"github.com/prometheux/docschat/pkg/search"
)

// SingleShotRequest is the body of POST /api/vadalog.
type SingleShotRequest struct {
	Query       string `json:"query"`
	Context     string `json:"context,omitempty"`
	IncludeDocs *bool  `json:"include_docs,omitempty"` // defaults to true
}

func (r SingleShotRequest) includeDocs() bool {
	return r.IncludeDocs == nil || *r.IncludeDocs
}

// ConversationRequest is the body of POST /api/docsChat.
type ConversationRequest struct {
	Messages []llm.Message `json:"messages"`
}

// SingleShotResponse is the structured answer of POST /api/vadalog.
type SingleShotResponse struct {
	Response     string            `json:"response"`
	CodeExamples []codeblock.Block `json:"code_examples"`
	RelevantDocs []search.Snippet  `json:"relevant_docs"`
	Metadata     ResponseMetadata  `json:"metadata"`
	Timestamp    string            `json:"timestamp"`
}

// ResponseMetadata describes how an answer was produced.
type ResponseMetadata struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	TokensUsed    any    `json:"tokens_used"` // int, or "unknown"
	SearchResults int    `json:"search_results"`
}

// UnavailableResponse is returned with 503 when no provider is configured.
type UnavailableResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UpstreamErrorResponse is returned with 500 when the provider call fails.
// Details echoes the raw upstream body.
type UpstreamErrorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ErrorResponse is returned for malformed requests and internal faults.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp,omitempty"`
}
