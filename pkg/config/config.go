// Package config loads the docschat configuration from an optional TOML file,
// an optional dotenv file and the process environment, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/prometheux/docschat/pkg/prompt"
	"github.com/prometheux/docschat/pkg/provider"
	"github.com/prometheux/docschat/pkg/search"
	"github.com/prometheux/docschat/pkg/wordstream"
)

// DefaultEnvFile is the dotenv file read at start-up when present.
const DefaultEnvFile = ".env.local"

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	OpenAI OpenAIConfig `toml:"openai"`
	Azure  AzureConfig  `toml:"azure"`
	Search SearchConfig `toml:"search"`
	Prompt PromptConfig `toml:"prompt"`
}

// ServerConfig controls the HTTP listener and CORS.
type ServerConfig struct {
	Listen      string `toml:"listen"`
	Production  bool   `toml:"production"`    // NODE_ENV=production
	DocsBaseURL string `toml:"docs_base_url"` // DOCS_BASE_URL
	StreamDelay string `toml:"stream_delay"`  // Go duration, e.g. "10ms"
}

// OpenAIConfig is the primary provider.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`  // OPENAI_API_KEY
	BaseURL string `toml:"base_url"` // OPENAI_BASE_URL
	Model   string `toml:"model"`    // OPENAI_MODEL
}

// AzureConfig is the secondary provider.
type AzureConfig struct {
	Use        bool   `toml:"use"`         // USE_AZURE_OPENAI
	Endpoint   string `toml:"endpoint"`    // AZURE_OPENAI_ENDPOINT
	Key        string `toml:"key"`         // AZURE_OPENAI_KEY
	Deployment string `toml:"deployment"`  // AZURE_OPENAI_DEPLOYMENT
	APIVersion string `toml:"api_version"` // AZURE_OPENAI_API_VERSION
}

// SearchConfig points at the documentation search index. The defaults are the
// public DocSearch credentials of the documentation site.
type SearchConfig struct {
	AppID     string `toml:"app_id"`     // ALGOLIA_APP_ID
	SearchKey string `toml:"search_key"` // ALGOLIA_SEARCH_KEY
	Index     string `toml:"index"`      // ALGOLIA_INDEX
	TopK      int    `toml:"top_k"`
}

// PromptConfig selects the rules text for each endpoint.
type PromptConfig struct {
	SingleShotRules       string `toml:"single_shot_rules"`
	SingleShotRulesFile   string `toml:"single_shot_rules_file"`
	ConversationRules     string `toml:"conversation_rules"`
	ConversationRulesFile string `toml:"conversation_rules_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:      ":3000",
			DocsBaseURL: search.DefaultDocsBaseURL,
			StreamDelay: wordstream.DefaultDelay.String(),
		},
		OpenAI: OpenAIConfig{
			BaseURL: provider.DefaultOpenAIBaseURL,
		},
		Azure: AzureConfig{
			APIVersion: provider.DefaultAzureAPIVersion,
		},
		Search: SearchConfig{
			AppID:     search.DefaultAlgoliaAppID,
			SearchKey: search.DefaultAlgoliaSearchKey,
			Index:     search.DefaultAlgoliaIndex,
			TopK:      search.DefaultTopK,
		},
		Prompt: PromptConfig{
			SingleShotRules:   prompt.RulesConcise,
			ConversationRules: prompt.RulesExtended,
		},
	}
}

// Load builds the configuration. path is an optional TOML file; envFile is an
// optional dotenv file whose values never override variables already set in
// the environment. A missing envFile is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return cfg, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if _, err := cfg.StreamDelay(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields with the deployment's environment variables.
// Empty values are ignored.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("NODE_ENV"); ok && v != "" {
		c.Server.Production = v == "production"
	}
	str("DOCS_BASE_URL", &c.Server.DocsBaseURL)

	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("OPENAI_MODEL", &c.OpenAI.Model)

	if v, ok := lookup("USE_AZURE_OPENAI"); ok && v != "" {
		c.Azure.Use = v == "true"
	}
	str("AZURE_OPENAI_ENDPOINT", &c.Azure.Endpoint)
	str("AZURE_OPENAI_KEY", &c.Azure.Key)
	str("AZURE_OPENAI_DEPLOYMENT", &c.Azure.Deployment)
	str("AZURE_OPENAI_API_VERSION", &c.Azure.APIVersion)

	str("ALGOLIA_APP_ID", &c.Search.AppID)
	str("ALGOLIA_SEARCH_KEY", &c.Search.SearchKey)
	str("ALGOLIA_INDEX", &c.Search.Index)
	if v, ok := lookup("ALGOLIA_TOP_K"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TopK = n
		}
	}
}

// ProviderSettings returns the immutable provider configuration.
func (c Config) ProviderSettings() provider.Settings {
	return provider.Settings{
		PreferSecondary: c.Azure.Use,
		Primary: provider.Endpoint{
			Name:       "OpenAI",
			URL:        c.OpenAI.BaseURL,
			Credential: c.OpenAI.APIKey,
			Model:      c.OpenAI.Model,
		},
		Secondary: provider.Endpoint{
			Name:       "Azure OpenAI",
			URL:        c.Azure.Endpoint,
			Credential: c.Azure.Key,
			Model:      c.Azure.Deployment,
			APIVersion: c.Azure.APIVersion,
		},
	}
}

// AllowedOrigin is the Access-Control-Allow-Origin value: the documentation
// site in production, anything otherwise.
func (c Config) AllowedOrigin() string {
	if c.Server.Production {
		return strings.TrimRight(c.Server.DocsBaseURL, "/")
	}
	return "*"
}

// StreamDelay parses Server.StreamDelay.
func (c Config) StreamDelay() (time.Duration, error) {
	if c.Server.StreamDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.StreamDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid stream_delay %q: %w", c.Server.StreamDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid stream_delay %q: negative", c.Server.StreamDelay)
	}
	return d, nil
}

// Rules loads the rules text for both endpoints.
func (c Config) Rules() (singleShot, conversation string, err error) {
	singleShot, err = prompt.LoadRules(c.Prompt.SingleShotRules, c.Prompt.SingleShotRulesFile)
	if err != nil {
		return "", "", fmt.Errorf("single-shot rules: %w", err)
	}
	conversation, err = prompt.LoadRules(c.Prompt.ConversationRules, c.Prompt.ConversationRulesFile)
	if err != nil {
		return "", "", fmt.Errorf("conversation rules: %w", err)
	}
	return singleShot, conversation, nil
}
