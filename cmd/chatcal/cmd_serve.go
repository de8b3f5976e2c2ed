package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/chatcal/internal/calendar/google"
	"github.com/user/chatcal/internal/config"
	"github.com/user/chatcal/internal/delivery"
	"github.com/user/chatcal/internal/dispatch"
	"github.com/user/chatcal/internal/gateway"
	"github.com/user/chatcal/internal/nlu"
	"github.com/user/chatcal/internal/scheduler"
	"github.com/user/chatcal/internal/state"
	"github.com/user/chatcal/internal/telegram"
	"github.com/user/chatcal/internal/temporal"
	"github.com/user/chatcal/internal/webhook"
	"github.com/user/chatcal/pkg/llm"
	"github.com/user/chatcal/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chatcal daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func tokenStore(cfg *config.Config) *state.TokenStore {
	return state.NewTokenStore(filepath.Join(cfg.DataDir, "tokens.json"))
}

func briefingStore(cfg *config.Config) *state.BriefingStore {
	return state.NewBriefingStore(filepath.Join(cfg.DataDir, "briefings.json"))
}

func googleTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Google.TimeoutSeconds) * time.Second
}

func newAuth(cfg *config.Config) *google.Auth {
	return google.NewAuth(google.AuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}, tokenStore(cfg)).WithTimeout(googleTimeout(cfg))
}

// newParser builds the intent parser. The input budget is optional: without
// a tokenizer utterances reach the model untrimmed.
func newParser(cfg *config.Config) *nlu.Parser {
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Format:      llm.FormatJSON,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})

	var opts []nlu.Option
	if cfg.LLM.MaxInputTokens > 0 {
		budget, err := nlu.NewBudget(cfg.LLM.Model, cfg.LLM.MaxInputTokens)
		if err != nil {
			slog.Warn("input token budget disabled", "error", err)
		} else {
			opts = append(opts, nlu.WithBudget(budget))
		}
	}
	return nlu.New(provider, opts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return errors.New("google.client_id and google.client_secret must be set (run chatcal setup)")
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	loc := location(cfg)
	clock := temporal.SystemClock{Location: loc}

	auth := newAuth(cfg)
	backend := google.NewBackend(auth,
		google.WithCalendarID(cfg.Google.CalendarID),
		google.WithLocation(loc),
		google.WithClock(clock),
		google.WithTimeout(googleTimeout(cfg)),
	)
	dispatcher := dispatch.New(newParser(cfg), backend, clock)

	gw := gateway.New(dispatcher, int64(cfg.MaxConcurrent))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("chatcal started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"timezone", loc.String(),
		"max_concurrent", cfg.MaxConcurrent,
		"llm_model", cfg.LLM.Model,
		"calendar_id", cfg.Google.CalendarID,
		"google_timeout", googleTimeout(cfg),
		"pid_file", pidPath,
	)

	deliveryReg := delivery.NewRegistry()

	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw, auth)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		adapter.SetAuthTimeout(googleTimeout(cfg))
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")

		deliveryReg.Register(delivery.TelegramPrefix, delivery.Telegram(adapter.Send))
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	briefings := briefingStore(cfg)
	sched := scheduler.New(briefings, gw, deliveryReg, scheduler.WithLocation(loc))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started")

	if cfg.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           webhook.NewServer(gw, briefings, sched.Fire),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	for {
		sig := <-sigChan
		if sig == syscall.SIGUSR1 {
			slog.Info("received SIGUSR1, reloading briefings")
			if err := sched.Reload(); err != nil {
				slog.Error("failed to reload briefings", "error", err)
			}
			continue
		}
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
