package main

import (
	"context"
	"fmt"

	"github.com/pysugar/visionary-studio/internal/app"
	"github.com/pysugar/visionary-studio/internal/auth/google"
	"github.com/pysugar/visionary-studio/internal/config"
	"github.com/pysugar/visionary-studio/internal/db"
	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/export/googleapi"
	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/history"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "visionary-cli",
	Short: "Generate images and export them to Google Drive",
	Long: `Terminal client for Visionary Studio.

Images are generated through OpenRouter and kept in a local history of the
last 20 results. Connected Google accounts receive the PNG in Drive and a
row in the "Visionary AI Generations" spreadsheet.

Examples:
  visionary-cli login
  visionary-cli generate "a lighthouse at dawn" --aspect 16:9 --save
  visionary-cli history
  visionary-cli save 3f2a...`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults to $VISIONARY_CONFIG)")
}

// env is everything a command needs, assembled from config.
type env struct {
	cfg    *config.Config
	auth   *google.Controller
	tokens *app.SettingsTokenSlot
	state  *app.State

	stopWatch func()
}

// close stops the auth watcher and waits for it to exit.
func (e *env) close() {
	if e.stopWatch != nil {
		e.stopWatch()
	}
}

func loadEnv(ctx context.Context) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.OpenRouterTimeout()
	if err != nil {
		return nil, err
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	notifier := google.NewNotifier()
	auth := google.NewController(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  google.RedirectURLFor(cfg.AppURL),
	}, notifier)

	tokens := app.NewSettingsTokenSlot(database)
	backend := &app.LocalBackend{
		Generator: generator.NewClient(generator.Options{
			APIKey:  cfg.OpenRouter.APIKey,
			BaseURL: cfg.OpenRouter.BaseURL,
			Model:   cfg.OpenRouter.Model,
			Referer: cfg.AppURL,
			Timeout: timeout,
		}),
		Exporter: export.NewWorkflow(&googleapi.Factory{}),
		Tokens:   tokens,
	}

	state, err := app.New(backend, history.NewSettingsStore(database))
	if err != nil {
		return nil, err
	}
	state.Init(ctx)

	events, cancel := notifier.Subscribe()
	done := state.WatchAuth(events)

	return &env{
		cfg:    cfg,
		auth:   auth,
		tokens: tokens,
		state:  state,
		stopWatch: func() {
			cancel()
			<-done
		},
	}, nil
}
