package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tutorctl/tutorctl/internal/config"
	"github.com/tutorctl/tutorctl/internal/gateway"
	"github.com/tutorctl/tutorctl/internal/logger"
	"github.com/tutorctl/tutorctl/internal/session"
)

var (
	cfgFile      string
	providerFlag string
	modelFlag    string
	langFlag     string
	useTUI       bool
	debugFlag    bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "tutorctl",
		Short: "AI study assistant for the terminal",
		Long:  "tutorctl is a conversational study assistant: chat sessions, document-grounded answers, homework help from photos, speech and image generation.",
		// Running tutorctl with no subcommand starts chat mode.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/tutorctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override provider")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override model")
	rootCmd.PersistentFlags().StringVarP(&langFlag, "lang", "l", "", "language: en or ar")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use bubbletea TUI mode (default: auto-detect terminal)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "verbose logging to stderr")

	// Subcommands
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newSolveCmd())
	rootCmd.AddCommand(newSpeakCmd())
	rootCmd.AddCommand(newImagineCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// CLI flags override config values
	if providerFlag != "" {
		cfg.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if langFlag == config.LangEnglish || langFlag == config.LangArabic {
		cfg.Language = langFlag
	}
	if debugFlag {
		cfg.LogLevel = "debug"
	}

	return cfg
}

// newLogger builds the process logger: a file sink under the data dir, plus
// stderr when --debug is on. Logging failures degrade to a no-op logger.
func newLogger(cfg *config.Config) (zerolog.Logger, io.Closer) {
	logPath := ""
	if dir, err := config.DataDir(); err == nil {
		logPath = filepath.Join(dir, "tutorctl.log")
	}
	log, closer, err := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		File:    logPath,
		Console: debugFlag,
	})
	if err != nil {
		return zerolog.Nop(), nil
	}
	return log, closer
}

// providerBaseURLs maps OpenAI-compatible provider names to their base URLs.
var providerBaseURLs = map[string]string{
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com",
	"minimax":  "https://api.minimax.chat/v1",
	"kimi":     "https://api.moonshot.cn/v1",
	"qwen":     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"glm":      "https://open.bigmodel.cn/api/paas/v4/",
	"doubao":   "https://ark.cn-beijing.volces.com/api/v3",
	"groq":     "https://api.groq.com/openai/v1",
}

// buildCompleter creates the completion gateway based on configuration.
func buildCompleter(cfg *config.Config) (gateway.Completer, error) {
	name := cfg.Provider
	pc := cfg.GetProviderConfig(name)

	apiKey := pc.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf(
			"API key not configured for provider %q.\n"+
				"Set it via:\n"+
				"  - config file: providers.%s.api_key\n"+
				"  - environment: LLM_API_KEY",
			name, name,
		)
	}

	// Determine model: CLI flag > config file > provider default (set later)
	model := cfg.Model
	if pc.Model != "" && model == "" {
		model = pc.Model
	}

	switch name {
	case "anthropic":
		return gateway.NewAnthropicGateway(apiKey, model), nil
	default:
		// All other providers use OpenAI-compatible API
		baseURL := pc.BaseURL
		if baseURL == "" {
			if u, ok := providerBaseURLs[name]; ok {
				baseURL = u
			} else {
				return nil, fmt.Errorf("unknown provider %q; set providers.%s.base_url in config", name, name)
			}
		}
		return gateway.NewOpenAIGateway(apiKey, baseURL, model), nil
	}
}

// buildOpenAIGateway returns an OpenAI gateway for the capabilities only that
// API exposes (speech and image synthesis).
func buildOpenAIGateway(cfg *config.Config) (*gateway.OpenAIGateway, error) {
	pc := cfg.GetProviderConfig("openai")
	if pc.APIKey == "" {
		return nil, fmt.Errorf("speech and image generation need an OpenAI key: set providers.openai.api_key")
	}
	baseURL := pc.BaseURL
	if baseURL == "" {
		baseURL = providerBaseURLs["openai"]
	}
	return gateway.NewOpenAIGateway(pc.APIKey, baseURL, pc.Model), nil
}

// buildSearcher returns the web search boundary. Jina needs no key, so search
// is always available; Tavily is selected when its key is configured.
func buildSearcher(cfg *config.Config) gateway.Searcher {
	return gateway.NewWebSearcher(cfg.Search.Provider, cfg.Search.APIKey)
}

// buildStore opens the configured session store.
func buildStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			p, err := session.DefaultDBPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return session.NewSQLiteStore(path)
	default:
		path := cfg.Store.Path
		if path == "" {
			p, err := session.DefaultSnapshotPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return session.NewSnapshotStore(path), nil
	}
}
