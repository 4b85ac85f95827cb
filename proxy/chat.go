package proxy

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/prometheux/docschat/pkg/codeblock"
	"github.com/prometheux/docschat/pkg/provider"
	"github.com/prometheux/docschat/pkg/prompt"
	"github.com/prometheux/docschat/pkg/search"
	"github.com/prometheux/docschat/pkg/wordstream"
)

const (
	unavailableTitle  = "AI assistant not available"
	unavailableDetail = "AI assistant is not configured for this deployment."
	badRequestTitle   = "Bad Request"
	internalTitle     = "Internal Server Error"
)

// handleSingleShot answers one question with a structured JSON envelope.
func (p *Proxy) handleSingleShot(c *fiber.Ctx) error {
	decision := p.config.Providers.Resolve()
	if !decision.Available() {
		p.logger.Error("no AI provider configured", zap.String("request_id", requestID(c)))
		return c.Status(fiber.StatusServiceUnavailable).JSON(UnavailableResponse{
			Error:     unavailableTitle,
			Message:   unavailableDetail,
			Status:    fiber.StatusServiceUnavailable,
			Timestamp: p.timestamp(),
		})
	}

	var req SingleShotRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     badRequestTitle,
			Details:   "invalid request body",
			Timestamp: p.timestamp(),
		})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:     badRequestTitle,
			Details:   "query is required",
			Timestamp: p.timestamp(),
		})
	}

	p.logger.Debug("received single-shot request",
		zap.String("request_id", requestID(c)),
		zap.String("provider", decision.Name),
		zap.Bool("include_docs", req.includeDocs()),
		zap.Bool("has_context", req.Context != ""),
	)

	var docs search.Result
	if req.includeDocs() {
		docs = p.retrieve(c, req.Query)
	}

	assembled := p.singleShot.Assemble(docs.Snippets, req.Context, prompt.UserQuery(req.Query))

	completion, err := p.completer.Complete(c.Context(), decision, assembled.Messages)
	if err != nil {
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusInternalServerError).JSON(UpstreamErrorResponse{
				Error:     upstreamTitle(pe),
				Status:    pe.StatusCode,
				Details:   pe.Body,
				Timestamp: p.timestamp(),
			})
		}
		p.logger.Error("completion failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     internalTitle,
			Details:   err.Error(),
			Timestamp: p.timestamp(),
		})
	}

	relevant := docs.Snippets
	if relevant == nil {
		relevant = []search.Snippet{}
	}

	return c.JSON(SingleShotResponse{
		Response:     completion.Text,
		CodeExamples: codeblock.Extract(completion.Text),
		RelevantDocs: relevant,
		Metadata: ResponseMetadata{
			Provider:      decision.Name,
			Model:         decision.ModelID,
			TokensUsed:    completion.TokensUsedValue(),
			SearchResults: docs.Len(),
		},
		Timestamp: p.timestamp(),
	})
}

// handleConversation answers the last message of a conversation, re-emitting
// the completion word by word as a text/plain stream.
func (p *Proxy) handleConversation(c *fiber.Ctx) error {
	decision := p.config.Providers.Resolve()
	if !decision.Available() {
		p.logger.Error("no AI provider configured", zap.String("request_id", requestID(c)))
		return c.Status(fiber.StatusServiceUnavailable).JSON(UnavailableResponse{
			Error:   unavailableTitle,
			Message: unavailableDetail + " Please contact the administrator.",
		})
	}

	var req ConversationRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: badRequestTitle, Details: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: badRequestTitle, Details: "messages must not be empty"})
	}

	// The latest message drives the documentation search.
	query := req.Messages[len(req.Messages)-1].Content

	var docs search.Result
	if strings.TrimSpace(query) != "" {
		docs = p.retrieve(c, query)
	}

	assembled := p.conversation.Assemble(docs.Snippets, "", req.Messages)

	completion, err := p.completer.Complete(c.Context(), decision, assembled.Messages)
	if err != nil {
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			return c.Status(fiber.StatusInternalServerError).JSON(UpstreamErrorResponse{
				Error:   upstreamTitle(pe),
				Status:  pe.StatusCode,
				Details: pe.Body,
			})
		}
		p.logger.Error("completion failed", zap.String("request_id", requestID(c)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: internalTitle, Details: err.Error()})
	}

	// Set up streaming response headers
	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// Fiber recycles c once the handler returns; capture what the writer needs.
	var (
		text   = completion.Text
		ctx    = p.ctx
		delay  = p.config.StreamDelay
		logger = p.logger.With(zap.String("request_id", requestID(c)))
		start  = time.Now()
	)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		n, err := wordstream.Emit(ctx, wordstream.Words(text), wordstream.BufferedSink{W: w}, delay)
		if err != nil {
			logger.Warn("stream aborted", zap.Int("chunks", n), zap.Error(err))
			return
		}
		logger.Debug("stream complete",
			zap.Int("chunks", n),
			zap.Duration("duration", time.Since(start)),
		)
	}))

	return nil
}

// retrieve runs the best-effort documentation lookup for a question.
func (p *Proxy) retrieve(c *fiber.Ctx, question string) search.Result {
	if p.retriever == nil {
		return search.Result{}
	}

	query := search.Normalize(question)
	p.logger.Debug("searching documentation",
		zap.String("request_id", requestID(c)),
		zap.String("original_query", question),
		zap.String("search_query", query),
	)

	return p.retriever.Retrieve(c.Context(), query)
}

// upstreamTitle names the failure. Undecodable replies carry a 2xx status.
func upstreamTitle(pe *provider.ProviderError) string {
	if pe.Err != nil {
		return fmt.Sprintf("%s returned a malformed response", pe.Provider)
	}
	return fmt.Sprintf("%s error", pe.Provider)
}
