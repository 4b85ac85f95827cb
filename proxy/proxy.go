// Package proxy provides the docs chat HTTP service: it enriches questions with
// documentation search results and proxies them to a chat-completion provider.
package proxy

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prometheux/docschat/pkg/llm"
	"github.com/prometheux/docschat/pkg/prompt"
	"github.com/prometheux/docschat/pkg/provider"
	"github.com/prometheux/docschat/pkg/search"
)

// Retriever looks up documentation snippets. Implementations must not fail:
// a failed lookup is an empty result.
type Retriever interface {
	Retrieve(ctx context.Context, query string) search.Result
}

// Completer performs one chat completion against the decided provider.
type Completer interface {
	Complete(ctx context.Context, d provider.Decision, messages []llm.Message) (*provider.Completion, error)
}

// Proxy serves the chat endpoints. It holds no per-request state: the only
// value shared between requests is the immutable Config.
type Proxy struct {
	config       Config
	retriever    Retriever
	completer    Completer
	singleShot   *prompt.Assembler
	conversation *prompt.Assembler
	logger       *zap.Logger
	server       *fiber.App

	// ctx is cancelled on Shutdown so in-flight streams stop pacing.
	ctx    context.Context
	cancel context.CancelFunc

	now func() time.Time
}

// New creates a new Proxy.
func New(config Config, retriever Retriever, completer Completer, logger *zap.Logger) (*Proxy, error) {
	if completer == nil {
		return nil, errors.New("proxy: completer is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Proxy{
		config:       config,
		retriever:    retriever,
		completer:    completer,
		singleShot:   prompt.NewAssembler(config.SingleShotRules),
		conversation: prompt.NewAssembler(config.ConversationRules),
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          p.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		ContextKey: requestIDKey,
		Generator: func() string {
			return "req_" + uuid.NewString()[:8]
		},
	}))
	app.Use(p.logRequests)

	// Chat endpoints
	api := app.Group("/api", p.cors)
	api.Options("/vadalog", p.handlePreflight)
	api.Post("/vadalog", p.handleSingleShot)
	api.Options("/docsChat", p.handlePreflight)
	api.Post("/docsChat", p.handleConversation)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	p.server = app
	return p, nil
}

// Run starts the proxy server on the configured listening address.
func (p *Proxy) Run() error {
	p.logger.Info("starting docs chat server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("provider", string(p.config.Providers.Resolve().Active)),
		zap.String("allowed_origin", p.config.AllowedOrigin),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (p *Proxy) RunWithListener(ln net.Listener) error {
	return p.server.Listener(ln)
}

// Shutdown stops accepting connections, cancels in-flight streams and waits
// for active requests to finish.
func (p *Proxy) Shutdown() error {
	p.cancel()
	return p.server.Shutdown()
}

// App exposes the fiber application, mainly for app.Test in tests.
func (p *Proxy) App() *fiber.App {
	return p.server
}

const isoMillis = "2006-01-02T15:04:05.000Z"

func (p *Proxy) timestamp() string {
	return p.now().UTC().Format(isoMillis)
}
