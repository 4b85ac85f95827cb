package proxy

import (
	"time"

	"github.com/prometheux/docschat/pkg/provider"
)

// Config is the proxy server configuration. It is resolved once at start-up
// and shared read-only by every request.
type Config struct {
	// Address to listen on (e.g., ":3000")
	ListenAddr string

	// AllowedOrigin is sent as Access-Control-Allow-Origin ("*" outside production).
	AllowedOrigin string

	// Providers decides which chat-completion backend serves each request.
	Providers provider.Settings

	// SingleShotRules and ConversationRules are the rules blocks of the system
	// prompt for /api/vadalog and /api/docsChat respectively.
	SingleShotRules   string
	ConversationRules string

	// StreamDelay is the pause between streamed chunks.
	StreamDelay time.Duration
}
