package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faseelanwar-cpu/interview-coach/internal/agent"
	"github.com/faseelanwar-cpu/interview-coach/internal/api"
	"github.com/faseelanwar-cpu/interview-coach/internal/auth"
	"github.com/faseelanwar-cpu/interview-coach/internal/config"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/scoring"
	"github.com/faseelanwar-cpu/interview-coach/internal/store"
	"github.com/faseelanwar-cpu/interview-coach/internal/transcription"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

func main() {
	configPath := flag.String("config", "", "path to config.json (defaults to the user config directory)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Interview coach failed: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, err
	}
	config.LoadDotEnv()
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ApplyToEnv()

	settings, err := config.LoadInterviewSettings(cfg.InterviewSettingsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := llm.NewGeminiClient(ctx, llm.GeminiOptions{
		ProjectID:         cfg.GoogleCloudProject,
		Location:          cfg.GoogleCloudLocation,
		Model:             cfg.TextModel,
		CredentialsFile:   cfg.GoogleCredentialsPath,
		RequestsPerMinute: settings.RequestsPerMinute,
	})
	if err != nil {
		return err
	}
	defer gemini.Close()

	speech, err := llm.NewSpeechClient(ctx, llm.SpeechOptions{
		ProjectID:         cfg.GoogleCloudProject,
		Location:          cfg.GoogleCloudLocation,
		Model:             cfg.SpeechModel,
		Voice:             cfg.SpeechVoice,
		CredentialsFile:   cfg.GoogleCredentialsPath,
		RequestsPerMinute: settings.RequestsPerMinute,
	})
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer db.Close()

	if err := seedApprovedUsers(ctx, db, cfg.ApprovedEmailList()); err != nil {
		return err
	}

	sessions := auth.NewSession(db)
	coach := agent.NewCoach(agent.Deps{
		Store:       db,
		Auth:        sessions,
		Turns:       turns.NewGenerator(gemini, agent.Policy(settings, settings.GenerationTimeout), settings.NominalQuestions),
		Transcriber: transcription.NewClient(gemini, settings.TranscribeTimeout),
		Speech:      speech,
		Scorer:      scoring.NewScorer(gemini, agent.Policy(settings, settings.CVTimeout)),
		Settings:    settings,
	})
	defer coach.Close()

	server := api.NewServer(cfg, coach, sessions).HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting interview coach on %s (store: %s, model: %s)", server.Addr, cfg.StoreBackend, cfg.TextModel)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedApprovedUsers approves configured emails that are not yet known
func seedApprovedUsers(ctx context.Context, db store.Store, emails []string) error {
	for _, email := range emails {
		_, err := db.GetUser(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up %s: %w", email, err)
		}
		if err := db.ApproveUser(ctx, models.User{Email: email, ApprovedAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("failed to approve %s: %w", email, err)
		}
		log.Printf("Approved %s", email)
	}
	return nil
}
