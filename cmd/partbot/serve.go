package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partbot/internal/bot"
	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/qr"
	"github.com/JonMunkholm/partbot/internal/telegram"
	"github.com/JonMunkholm/partbot/internal/web"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "serve",
		Short:       "Run the chat bot and HTTP API until interrupted",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNeedsBot: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cc.config)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comp, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comp.Close()

	sessions := bot.NewSessions(cfg.Session.IdleTTL)
	engine := bot.New(bot.Deps{
		Resolver: comp.resolver,
		Searcher: comp.searcher,
		Ledger:   comp.ledger,
		Decoder:  qr.NewDecoder(),
		Options:  cfg.CoreOptions(),
		Sessions: sessions,
	})
	go sessions.StartSweeper(ctx, cfg.Session.SweepInterval)

	// Chat jobs outlive the signal so an in-flight commit can finish
	// during shutdown.
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	var tg *telegram.Client
	if cfg.Telegram.Mode != config.TelegramOff {
		tg, err = telegram.New(jobCtx, cfg.Telegram, engine)
		if err != nil {
			return err
		}
	}

	errCh := make(chan error, 2)

	var srv *web.Server
	if cfg.Server.Enabled {
		deps := web.Deps{
			Resolver: comp.resolver,
			Searcher: comp.searcher,
			Ledger:   comp.ledger,
			Limiter:  comp.limiter(),
			Sessions: sessions,
		}
		if tg != nil {
			deps.Updates = tg
		}
		if tg != nil && cfg.Telegram.Mode == config.TelegramWebhook {
			deps.Webhook = tg.WebhookHandler(cfg.Telegram.WebhookSecret)
		}
		srv = web.NewServer(cfg, deps)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var polling <-chan struct{}
	if tg != nil {
		switch cfg.Telegram.Mode {
		case config.TelegramWebhook:
			if cfg.Telegram.WebhookURL != "" {
				if err := tg.SetWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
					slog.Error("register webhook failed", "error", err)
				}
			}
		case config.TelegramPolling:
			polling = runPolling(ctx, tg.Poll, errCh)
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
	case runErr = <-errCh:
		slog.Error("component failed, shutting down", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}
	if polling != nil {
		select {
		case <-polling:
		case <-shutdownCtx.Done():
			slog.Warn("polling did not stop in time")
		}
	}
	if tg != nil {
		if err := tg.Wait(shutdownCtx); err != nil {
			slog.Warn("chat updates did not finish in time", "error", err)
		}
	}
	cancelJobs()

	slog.Info("stopped", "active_conversations", sessions.Active())
	return runErr
}

// runPolling runs poll in the background and reports its error on errCh.
// The returned channel is closed once poll has returned, so no update is
// dispatched after it.
func runPolling(ctx context.Context, poll func(context.Context) error, errCh chan<- error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := poll(ctx); err != nil {
			errCh <- err
		}
	}()
	return done
}
