// Package llm provides the wire representation of OpenAI-compatible chat
// completion requests and responses exchanged with upstream providers.
package llm

// ErrorResponse represents an error body returned by the provider.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the provider's error message and code.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"` // OpenAI sends a string, Azure sometimes a number
}
