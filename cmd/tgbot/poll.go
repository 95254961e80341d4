package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/TokenPredictor/internal/server"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Receive updates by long polling",
	Long:  `Removes any registered webhook and pulls updates with getUpdates. Handy for local development.`,
	Args:  cobra.NoArgs,
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	// getUpdates is refused while a webhook is active
	if _, err := app.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn().Err(err).Msg("Failed to delete webhook")
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

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := app.api.GetUpdatesChan(updateConfig)
	log.Info().Msg("Polling for updates")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			if err := dispatcher.Submit(ctx, update); err != nil {
				break loop
			}
		}
	}

	log.Info().Msg("Stopping update polling...")
	app.api.StopReceivingUpdates()
	stopDispatch()
	_ = workers.Wait()
	return nil
}
