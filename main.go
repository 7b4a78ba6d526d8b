package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"home-assistant/internal/chat"
	"home-assistant/internal/config"
	"home-assistant/internal/groq"
	"home-assistant/internal/logging"
	"home-assistant/internal/metrics"
	"home-assistant/internal/transcript"
	"home-assistant/internal/ui"
	"home-assistant/internal/voice"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.home-assistant/config.yaml)")
	ask := flag.String("ask", "", "ask one question, print the answer and exit")
	listModels := flag.Bool("models", false, "list the models offered by the endpoint and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.InitLogger(cfg.LogLevel); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logging.Error("Metrics server stopped: %v", err)
			}
		}()
	}

	client := groq.NewClient(cfg.BaseURL, cfg.APIKey, groq.WithTimeout(cfg.RequestTimeout))
	session := chat.NewSession(client, transcript.NewStore(), chat.Settings{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
	})
	logging.Info("Starting with model=%s base_url=%s key=%s", cfg.Model, cfg.BaseURL, client.APIKeyMasked())

	if *listModels || *ask != "" {
		var code int
		if *listModels {
			code = runListModels(ctx, client)
		} else {
			code = runAsk(ctx, session, *ask)
		}
		stop()
		logging.Close()
		os.Exit(code)
	}

	var listener *voice.Listener
	if cfg.VoiceEnabled() {
		listener = voice.NewListener(voice.NewCommandRecognizer(cfg.Voice.Command, cfg.Voice.Language))
	}

	view := ui.NewChatViewModel(session, listener, ui.ViewOptions{
		Model:             cfg.Model,
		KeyMasked:         client.APIKeyMasked(),
		CredentialMissing: !cfg.HasCredential(),
	}, 80, 24)

	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Fatalf("Error running program: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func runListModels(ctx context.Context, client *groq.Client) int {
	available, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list models: %v\n", err)
		return 1
	}
	for _, m := range available {
		fmt.Println(m.ID)
	}
	return 0
}

func runAsk(ctx context.Context, session *chat.Session, question string) int {
	if err := chat.Ask(ctx, session, question, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
