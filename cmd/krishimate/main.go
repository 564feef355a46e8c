package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hession/krishimate/internal/agent"
	"github.com/hession/krishimate/internal/cli"
	"github.com/hession/krishimate/internal/config"
	"github.com/hession/krishimate/internal/embedding"
	"github.com/hession/krishimate/internal/handler"
	"github.com/hession/krishimate/internal/intent"
	"github.com/hession/krishimate/internal/llm"
	"github.com/hession/krishimate/internal/logger"
	"github.com/hession/krishimate/internal/memory"
	"github.com/hession/krishimate/internal/weather"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
)

func main() {
	var userID string

	rootCmd := &cobra.Command{
		Use:   "krishimate",
		Short: "KrishiMate - AI farming companion for Indian farmers",
		Long: `KrishiMate is a conversational farming assistant that remembers your farm.

It can:
  • Diagnose crop diseases and suggest treatments
  • Look up mandi prices and selling strategy
  • Check weather and spray timing for your village
  • Explain government schemes and subsidies
  • Recommend fertilizer doses for your soil
  • Remember your farm details across conversations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return cli.NewREPL(app.Supervisor, app.Engine).Run()
		},
	}

	// ask subcommand: one question, one answer, no REPL
	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Supervisor.Answer(context.Background(), userID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Println(resp.Text)
			if len(resp.Sources) > 0 {
				fmt.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
			}
			return nil
		},
	}
	askCmd.Flags().StringVarP(&userID, "user", "u", cli.DefaultUserID, "farmer profile to use")

	// config subcommand
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Println(cfg.String())

			path, _ := config.ConfigPath()
			fmt.Printf("\nConfig file path: %s\n", path)
			return nil
		},
	}

	// version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("KrishiMate v%s\n", version)
		},
	}

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration, initializes logging and verifies
// the API key is present.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		LogDir:  config.LogDir(),
		Level:   logger.INFO,
		MaxDays: 7,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	if !cfg.IsAPIKeyConfigured() {
		path, _ := config.ConfigPath()
		return nil, fmt.Errorf("API key not configured. Set model.api_key in %s or KRISHIMATE_API_KEY in the .secrets file", path)
	}

	return cfg, nil
}

// App bundles the wired application components.
type App struct {
	Supervisor *agent.Supervisor
	Engine     *memory.Engine

	store *memory.SQLiteStore
}

// Close releases the storage resources.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close memory store: %v", err)
	}
	logger.Close()
}

// buildApp wires every component from configuration.
func buildApp(cfg *config.Config) (*App, error) {
	store, err := memory.NewSQLiteStore(cfg.Memory.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	llmClient := llm.NewClient(cfg.Model.APIKey, cfg.Model.BaseURL, cfg.Model.Temperature, cfg.Model.MaxTokens)
	service, err := llm.NewService(llmClient, cfg.Model)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build LLM service: %w", err)
	}

	engine := memory.NewEngine(
		store,
		embedding.NewHTTPClient(&cfg.Embedding),
		memory.NewExtractor(service),
		memory.NewDeduplicator(service),
		memory.EngineOptions{
			ShortTermLimit: cfg.Memory.ShortTermLimit,
			MaxInject:      cfg.Memory.MaxInject,
		},
	)

	provider := weather.NewOpenWeatherProvider(
		cfg.Weather.BaseURL,
		cfg.Weather.APIKey,
		time.Duration(cfg.Weather.TimeoutSeconds)*time.Second,
	)

	registry := handler.NewRegistry()
	handlers := []handler.Handler{
		handler.NewCropDoctor(service),
		handler.NewMarket(service),
		handler.NewScheme(service),
		handler.NewWeather(provider),
		handler.NewSoil(service),
		handler.NewGeneral(service),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to register handler: %w", err)
		}
	}
	if err := registry.Validate(intent.Handlers()); err != nil {
		store.Close()
		return nil, fmt.Errorf("handler registry incomplete: %w", err)
	}

	supervisor := agent.NewSupervisor(intent.NewClassifier(service), registry, engine, service)

	logger.Info("krishimate v%s started, db=%s", version, cfg.Memory.DBPath)

	return &App{
		Supervisor: supervisor,
		Engine:     engine,
		store:      store,
	}, nil
}
