package main

import (
	"context"
	"log"
	"net/http"

	"github.com/pysugar/visionary-studio/internal/api"
	"github.com/pysugar/visionary-studio/internal/auth/google"
	"github.com/pysugar/visionary-studio/internal/config"
	"github.com/pysugar/visionary-studio/internal/export"
	"github.com/pysugar/visionary-studio/internal/export/googleapi"
	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/logging"
	"github.com/pysugar/visionary-studio/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("⚠️ Google export disabled until configured: %v", err)
	}
	if cfg.OpenRouter.APIKey == "" {
		log.Printf("⚠️ OPENROUTER_API_KEY is not set, image generation will fail")
	}
	timeout, err := cfg.OpenRouterTimeout()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Authorization events are only logged here; browsers learn about them
	// from the callback page.
	notifier := google.NewNotifier()
	events, cancel := notifier.Subscribe()
	defer cancel()
	go func() {
		for ev := range events {
			logging.Printf(context.Background(), "✅ [OAuth] Google account connected at %s", ev.At.Format("15:04:05"))
		}
	}()

	authController := google.NewController(google.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  google.RedirectURLFor(cfg.AppURL),
	}, notifier)

	generatorClient := generator.NewClient(generator.Options{
		APIKey:  cfg.OpenRouter.APIKey,
		BaseURL: cfg.OpenRouter.BaseURL,
		Model:   cfg.OpenRouter.Model,
		Referer: cfg.AppURL,
		Timeout: timeout,
	})

	r := api.NewRouter(api.Dependencies{
		Auth:      authController,
		Generator: generatorClient,
		Exporter:  export.NewWorkflow(&googleapi.Factory{}),
	})

	addr := cfg.Addr()
	log.Printf("🚀 Visionary Studio %s starting on http://%s", version.Version, addr)
	log.Printf("🔐 Google OAuth callback: %s", google.RedirectURLFor(cfg.AppURL))
	log.Printf("🎨 Generate API: %s/api/openrouter-generate", cfg.AppURL)
	log.Printf("📁 Export API: %s/api/save-to-google", cfg.AppURL)

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
