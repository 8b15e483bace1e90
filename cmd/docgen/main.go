// cmd/docgen/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/julianshen/docgen/internal/archive"
	"github.com/julianshen/docgen/internal/config"
	"github.com/julianshen/docgen/internal/docgen"
	"github.com/julianshen/docgen/internal/integrations"
	"github.com/julianshen/docgen/internal/llm"
	"github.com/julianshen/docgen/internal/provider"
	"github.com/julianshen/docgen/internal/runner"
	"github.com/julianshen/docgen/internal/source"

	// Register providers via init() side effects.
	_ "github.com/julianshen/docgen/internal/provider/anthropic"
	_ "github.com/julianshen/docgen/internal/provider/gemini"
	_ "github.com/julianshen/docgen/internal/provider/openai"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath   string
	modelFlag    string
	providerFlag string
	verboseFlag  bool
)

func versionString() string {
	return fmt.Sprintf("docgen %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(runner.ExitCodeFromError(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docgen",
		Short: "Generate documentation for a codebase",
		Long: `docgen summarizes, annotates and documents source code with a language
model, producing a README, file summaries and a folder diagram.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadDotEnv(".env")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override model name")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "override provider name")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(branchesCmd())
	return rootCmd
}

// defaultConfigPath returns ~/.config/docgen/config.toml, or config.yaml
// when only the YAML file exists.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "docgen")
	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(tomlPath); err != nil {
		yamlPath := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			return yamlPath, nil
		}
	}
	return tomlPath, nil
}

// loadConfig resolves the config path, loads the config, and applies any
// flag overrides.
func loadConfig() (*config.Config, error) {
	cfgPath := configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if modelFlag != "" {
		cfg.Provider.Model = modelFlag
	}
	if providerFlag != "" {
		cfg.Provider.Default = providerFlag
	}
	if verboseFlag {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// parseLevel maps a config level name to a slog level. Unknown names
// fall back to info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)
	return logger
}

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	resolver *source.Resolver
	store    *archive.Store
	stages   *docgen.Stages
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	p, err := provider.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	completer := llm.Wrap(integrations.NewLLMCompleter(p, cfg.Provider),
		llm.WithLogging(logger),
		llm.RateLimit(cfg.Provider.RequestsPerSecond, cfg.Provider.Burst),
	)
	caller := llm.NewCaller(completer, llm.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Std(),
		MaxJitter:   cfg.Retry.MaxJitter.Std(),
	}, logger)

	resolver, err := source.NewResolver(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating source resolver: %w", err)
	}
	store := archive.NewStore(cfg.Store.Size, cfg.Store.TTL.Std())

	return &app{
		cfg:      cfg,
		logger:   logger,
		resolver: resolver,
		store:    store,
		stages:   docgen.NewStages(cfg, caller, resolver, store, logger),
	}, nil
}

func (a *app) run(ctx context.Context, req docgen.Request) (*docgen.Result, error) {
	return docgen.Run(ctx, a.stages, req)
}

// setup loads configuration and builds the app for a command.
func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, newLogger(cfg))
}
