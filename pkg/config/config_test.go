package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheux/docschat/pkg/config"
	"github.com/prometheux/docschat/pkg/provider"
	"github.com/prometheux/docschat/pkg/search"
)

var envKeys = []string{
	"NODE_ENV", "DOCS_BASE_URL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"USE_AZURE_OPENAI", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_KEY",
	"AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
	"ALGOLIA_APP_ID", "ALGOLIA_SEARCH_KEY", "ALGOLIA_INDEX", "ALGOLIA_TOP_K",
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		// Start every spec from an environment without any of our variables;
		// Setenv restores the previous values afterwards.
		for _, k := range envKeys {
			GinkgoT().Setenv(k, "")
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("returns the defaults when nothing is configured", func() {
		cfg, err := config.Load("", filepath.Join(dir, "missing.env"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))

		Expect(cfg.Server.Listen).To(Equal(":3000"))
		Expect(cfg.Search.Index).To(Equal(search.DefaultAlgoliaIndex))
		Expect(cfg.AllowedOrigin()).To(Equal("*"))
		Expect(cfg.ProviderSettings().Resolve().Active).To(Equal(provider.KindNone))

		delay, err := cfg.StreamDelay()
		Expect(err).NotTo(HaveOccurred())
		Expect(delay).To(Equal(10 * time.Millisecond))
	})

	It("decodes a TOML file", func() {
		path := writeFile("docschat.toml", `
[server]
listen = ":8080"
stream_delay = "0s"

[openai]
api_key = "sk-file"
model = "gpt-4o"

[search]
top_k = 5

[prompt]
single_shot_rules = "extended"
`)

		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Listen).To(Equal(":8080"))
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-file"))
		Expect(cfg.OpenAI.BaseURL).To(Equal(provider.DefaultOpenAIBaseURL))
		Expect(cfg.Search.TopK).To(Equal(5))
		Expect(cfg.Prompt.SingleShotRules).To(Equal("extended"))

		d := cfg.ProviderSettings().Resolve()
		Expect(d.Active).To(Equal(provider.KindPrimary))
		Expect(d.ModelID).To(Equal("gpt-4o"))
	})

	It("rejects unknown keys", func() {
		path := writeFile("docschat.toml", "[server]\nlisten = \":8080\"\nport = 8080\n")
		_, err := config.Load(path, "")
		Expect(err).To(MatchError(ContainSubstring("server.port")))
	})

	It("rejects an invalid stream delay", func() {
		path := writeFile("docschat.toml", "[server]\nstream_delay = \"soon\"\n")
		_, err := config.Load(path, "")
		Expect(err).To(MatchError(ContainSubstring("invalid stream_delay")))
	})

	It("lets the environment override the file", func() {
		path := writeFile("docschat.toml", "[openai]\napi_key = \"sk-file\"\n")
		GinkgoT().Setenv("OPENAI_API_KEY", "sk-env")
		GinkgoT().Setenv("USE_AZURE_OPENAI", "true")
		GinkgoT().Setenv("AZURE_OPENAI_ENDPOINT", "https://res.openai.azure.com")
		GinkgoT().Setenv("AZURE_OPENAI_KEY", "az-env")
		GinkgoT().Setenv("AZURE_OPENAI_DEPLOYMENT", "docs")
		GinkgoT().Setenv("ALGOLIA_TOP_K", "4")

		cfg, err := config.Load(path, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-env"))
		Expect(cfg.Search.TopK).To(Equal(4))

		d := cfg.ProviderSettings().Resolve()
		Expect(d.Active).To(Equal(provider.KindSecondary))
		Expect(d.Name).To(Equal("Azure OpenAI"))
		Expect(d.Endpoint).To(Equal("https://res.openai.azure.com"))
		Expect(d.ModelID).To(Equal("docs"))
		Expect(d.APIVersion).To(Equal(provider.DefaultAzureAPIVersion))
	})

	It("only treats USE_AZURE_OPENAI=true as enabled", func() {
		GinkgoT().Setenv("USE_AZURE_OPENAI", "yes")
		cfg, err := config.Load("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Azure.Use).To(BeFalse())
	})

	It("ignores an invalid top-k", func() {
		GinkgoT().Setenv("ALGOLIA_TOP_K", "zero")
		cfg, err := config.Load("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Search.TopK).To(Equal(search.DefaultTopK))
	})

	It("reads the dotenv file without overriding the environment", func() {
		envFile := writeFile(".env.local", "OPENAI_API_KEY=sk-dotenv\nOPENAI_MODEL=gpt-4o-mini\n")
		GinkgoT().Setenv("OPENAI_MODEL", "gpt-4o")
		DeferCleanup(os.Unsetenv, "OPENAI_API_KEY")

		cfg, err := config.Load("", envFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-dotenv"))
		Expect(cfg.OpenAI.Model).To(Equal("gpt-4o"))
	})

	It("restricts CORS to the documentation site in production", func() {
		GinkgoT().Setenv("NODE_ENV", "production")
		GinkgoT().Setenv("DOCS_BASE_URL", "https://docs.example.com/")

		cfg, err := config.Load("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Production).To(BeTrue())
		Expect(cfg.AllowedOrigin()).To(Equal("https://docs.example.com"))
	})
})

var _ = Describe("Rules", func() {
	It("loads both variants", func() {
		single, conversation, err := config.Default().Rules()
		Expect(err).NotTo(HaveOccurred())
		Expect(single).To(ContainSubstring("RESPONSE GUIDELINES"))
		Expect(conversation).To(ContainSubstring("KEY SYNTAX REMINDERS"))
		Expect(single).NotTo(Equal(conversation))
	})

	It("reports an unknown variant", func() {
		cfg := config.Default()
		cfg.Prompt.ConversationRules = "missing"
		_, _, err := cfg.Rules()
		Expect(err).To(MatchError(ContainSubstring("conversation rules")))
	})
})
