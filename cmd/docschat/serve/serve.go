package servecmder

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prometheux/docschat/pkg/config"
	"github.com/prometheux/docschat/pkg/logger"
	"github.com/prometheux/docschat/pkg/provider"
	"github.com/prometheux/docschat/pkg/search"
	"github.com/prometheux/docschat/proxy"
)

const serveLongDesc string = `Run the docs chat HTTP server.

Configuration is read from an optional TOML file, then from the dotenv
file (.env.local by default), then from the environment. The provider
is chosen from USE_AZURE_OPENAI, AZURE_OPENAI_KEY and OPENAI_API_KEY;
without any credential the chat endpoints answer 503.

Examples:
  docschat serve
  docschat serve --listen :8080 --debug
  docschat serve --config /etc/docschat.toml --env-file ""`

const serveShortDesc string = "Run the docs chat server"

type serveCommander struct {
	configPath string
	envFile    string
	listen     string
	debug      bool
	logJSON    bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", config.DefaultEnvFile, "Dotenv file to load if present")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Log as JSON lines")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if c.listen != "" {
		cfg.Server.Listen = c.listen
	}

	log := logger.NewLogger(c.debug, c.logJSON)
	defer log.Sync() //nolint:errcheck

	proxyConfig, err := proxyConfig(cfg)
	if err != nil {
		return err
	}

	decision := proxyConfig.Providers.Resolve()
	log.Info("docs chat starting",
		zap.String("listen", proxyConfig.ListenAddr),
		zap.String("provider", string(decision.Active)),
		zap.String("provider_name", decision.Name),
		zap.String("model", decision.ModelID),
		zap.String("search_index", cfg.Search.Index),
		zap.Bool("production", cfg.Server.Production),
	)
	if !decision.Available() {
		log.Warn("no AI provider configured; chat endpoints will answer 503")
	}

	var retriever proxy.Retriever
	if cfg.Search.AppID != "" && cfg.Search.SearchKey != "" {
		retriever = search.NewRetriever(
			search.NewAlgoliaSearcher(cfg.Search.AppID, cfg.Search.SearchKey, cfg.Search.Index),
			log,
			search.WithTopK(cfg.Search.TopK),
			search.WithDocsBaseURL(cfg.Server.DocsBaseURL),
		)
	} else {
		log.Warn("documentation search disabled: no search credentials")
	}

	p, err := proxy.New(proxyConfig, retriever, provider.NewClient(log), log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		return p.Shutdown()
	}
}

// proxyConfig resolves everything the server needs once, before it starts.
func proxyConfig(cfg config.Config) (proxy.Config, error) {
	singleShot, conversation, err := cfg.Rules()
	if err != nil {
		return proxy.Config{}, fmt.Errorf("could not load prompt rules: %w", err)
	}

	delay, err := cfg.StreamDelay()
	if err != nil {
		return proxy.Config{}, err
	}

	return proxy.Config{
		ListenAddr:        cfg.Server.Listen,
		AllowedOrigin:     cfg.AllowedOrigin(),
		Providers:         cfg.ProviderSettings(),
		SingleShotRules:   singleShot,
		ConversationRules: conversation,
		StreamDelay:       delay,
	}, nil
}
