// Package provider decides which chat-completion backend serves a request and
// issues the completion call against it.
package provider

// Kind identifies which configured backend a Decision selected.
type Kind string

const (
	// KindPrimary is the OpenAI API.
	KindPrimary Kind = "primary"

	// KindSecondary is an Azure OpenAI deployment.
	KindSecondary Kind = "secondary"

	// KindNone means no backend has a credential; requests are rejected.
	KindNone Kind = "none"
)

const (
	// DefaultOpenAIBaseURL is used when the primary endpoint is not configured.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultAzureAPIVersion is the Azure OpenAI REST API version requested.
	DefaultAzureAPIVersion = "2024-02-15-preview"

	// DefaultModel is reported, and sent to OpenAI, when no model is configured.
	DefaultModel = "gpt-4"
)

// Endpoint is the connection detail of one backend.
type Endpoint struct {
	// Name is the human readable provider name echoed in response metadata.
	Name string

	// URL is the API base URL (OpenAI) or resource endpoint (Azure).
	URL string

	// Credential is the API key. An empty credential disables the endpoint.
	Credential string

	// Model is the model id (OpenAI) or deployment name (Azure).
	Model string

	// APIVersion is only used by Azure.
	APIVersion string
}

// Settings is the process-wide provider configuration. It is built once at
// start-up and never mutated afterwards.
type Settings struct {
	// PreferSecondary selects Azure whenever its credential is present.
	PreferSecondary bool

	Primary   Endpoint
	Secondary Endpoint
}

// Decision is the outcome of Resolve for a single request.
type Decision struct {
	Active     Kind
	Name       string
	Endpoint   string
	Credential string
	ModelID    string
	APIVersion string
}

// Available reports whether a backend was selected.
func (d Decision) Available() bool {
	return d.Active == KindPrimary || d.Active == KindSecondary
}

// Resolve picks the active backend. The secondary endpoint wins only when it
// is preferred and has a credential; otherwise the primary is used when it has
// a credential; otherwise nothing is available.
func (s Settings) Resolve() Decision {
	switch {
	case s.PreferSecondary && s.Secondary.Credential != "":
		return s.Secondary.decision(KindSecondary, "Azure OpenAI")
	case s.Primary.Credential != "":
		return s.Primary.decision(KindPrimary, "OpenAI")
	default:
		return Decision{Active: KindNone}
	}
}

func (e Endpoint) decision(kind Kind, defaultName string) Decision {
	d := Decision{
		Active:     kind,
		Name:       e.Name,
		Endpoint:   e.URL,
		Credential: e.Credential,
		ModelID:    e.Model,
		APIVersion: e.APIVersion,
	}
	if d.Name == "" {
		d.Name = defaultName
	}
	if d.ModelID == "" {
		d.ModelID = DefaultModel
	}
	if kind == KindPrimary && d.Endpoint == "" {
		d.Endpoint = DefaultOpenAIBaseURL
	}
	if kind == KindSecondary && d.APIVersion == "" {
		d.APIVersion = DefaultAzureAPIVersion
	}
	return d
}
