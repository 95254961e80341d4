package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/TokenPredictor/internal/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive updates through a webhook",
	Long: `Starts the HTTP server that Telegram delivers updates to on /bot<token>.
When WEBHOOK_URL is set the webhook is registered with Telegram on startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	if endpoint := cfg.WebhookEndpoint(); endpoint != "" {
		if err := registerWebhook(app.api, endpoint); err != nil {
			return err
		}
		log.Info().Str("url", cfg.WebhookURL).Msg("Webhook registered")
	} else {
		log.Warn().Msg("WEBHOOK_URL not set, assuming the webhook is registered elsewhere")
	}

	dispatcher := server.NewDispatcher(app.controller, server.DefaultQueueSize)
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	workers := new(errgroup.Group)
	workers.Go(func() error {
		dispatcher.Run(dispatchCtx)
		return nil
	})
	workers.Go(func() error {
		app.purgeStaleConversations(dispatchCtx, cfg.StateTTL)
		return nil
	})

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg.Addr(), server.NewRouter(cfg.TelegramBotToken, dispatcher))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case err = <-errCh:
		if err != nil {
			err = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("Server forced to shutdown")
	}

	// accepted updates are handled before the store closes
	stopDispatch()
	_ = workers.Wait()

	log.Info().Msg("Server exiting")
	return err
}

func registerWebhook(api *tgbotapi.BotAPI, endpoint string) error {
	wh, err := tgbotapi.NewWebhook(endpoint)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}
