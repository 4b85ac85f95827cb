package servecmder

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheux/docschat/pkg/config"
	"github.com/prometheux/docschat/pkg/provider"
)

var _ = Describe("proxyConfig", func() {
	It("resolves rules, delay and providers once", func() {
		cfg := config.Default()
		cfg.Server.Production = true
		cfg.Server.DocsBaseURL = "https://docs.example.com/"
		cfg.Server.StreamDelay = "25ms"
		cfg.OpenAI.APIKey = "sk-test"

		pc, err := proxyConfig(cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(pc.ListenAddr).To(Equal(":3000"))
		Expect(pc.AllowedOrigin).To(Equal("https://docs.example.com"))
		Expect(pc.StreamDelay).To(Equal(25 * time.Millisecond))
		Expect(pc.Providers.Resolve().Active).To(Equal(provider.KindPrimary))
		Expect(pc.SingleShotRules).To(ContainSubstring("CRITICAL SYNTAX RULES"))
		Expect(pc.ConversationRules).To(ContainSubstring("KEY SYNTAX REMINDERS"))
	})

	It("uses a rules file when configured", func() {
		path := filepath.Join(GinkgoT().TempDir(), "rules.md")
		Expect(os.WriteFile(path, []byte("ONLY THESE RULES"), 0o600)).To(Succeed())

		cfg := config.Default()
		cfg.Prompt.ConversationRulesFile = path

		pc, err := proxyConfig(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(pc.ConversationRules).To(Equal("ONLY THESE RULES"))
	})

	It("fails on an unknown rules variant", func() {
		cfg := config.Default()
		cfg.Prompt.SingleShotRules = "nope"

		_, err := proxyConfig(cfg)
		Expect(err).To(MatchError(ContainSubstring("could not load prompt rules")))
	})
})

var _ = Describe("Serve Command", func() {
	It("rejects positional arguments", func() {
		cmd := NewServeCmd()
		cmd.SetArgs([]string{"extra"})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		Expect(cmd.Execute()).NotTo(Succeed())
	})

	It("fails on a broken config file before listening", func() {
		path := filepath.Join(GinkgoT().TempDir(), "docschat.toml")
		Expect(os.WriteFile(path, []byte("[server\n"), 0o600)).To(Succeed())

		cmd := NewServeCmd()
		cmd.SetArgs([]string{"--config", path, "--env-file", ""})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("could not load configuration")))
	})
})
