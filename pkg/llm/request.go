package llm

// ChatRequest represents an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model    string    `json:"model,omitempty"` // Omitted for Azure, where the deployment selects the model
	Messages []Message `json:"messages"`        // System prompt followed by the conversation

	// Generation options
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}
