package main

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TokenPredictor/internal/bot"
	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/config"
	"github.com/Alias1177/TokenPredictor/internal/database"
	"github.com/Alias1177/TokenPredictor/internal/interval"
	platformhttp "github.com/Alias1177/TokenPredictor/internal/platform/http"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/Alias1177/TokenPredictor/internal/session/redisstore"
)

const purgeEvery = time.Hour

func newTranslator(cfg *config.Config) (interval.Translator, error) {
	return interval.New(cfg.ReferenceDate, cfg.IntervalDays)
}

func newPredictionClient(cfg *config.Config) *prediction.Client {
	return prediction.NewClient(cfg.APIEndpoint, platformhttp.ClientOptions{
		Timeout:        cfg.RequestTimeoutDuration(),
		RequestsPerSec: cfg.RequestsPerSec,
		MaxAttempts:    cfg.MaxAttempts,
	})
}

// openStore connects the configured conversation backend
func openStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		return redisstore.Connect(ctx, cfg.RedisURL, cfg.StateTTL)
	case config.BackendPostgres:
		return database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
	default:
		return session.NewMemoryStore(), nil
	}
}

// application is what serve and poll share
type application struct {
	api        *tgbotapi.BotAPI
	store      session.Store
	controller *bot.Controller
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	if err := cfg.RequireBotToken(); err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIEndpoint(); err != nil {
		return nil, err
	}
	flow, err := bot.ParseFlow(cfg.Flow)
	if err != nil {
		return nil, err
	}
	translator, err := newTranslator(cfg)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s conversation store: %w", cfg.StateBackend, err)
	}
	log.Info().Str("backend", cfg.StateBackend).Msg("Conversation store ready")

	controller := bot.NewController(
		catalog.Default(),
		translator,
		newPredictionClient(cfg),
		store,
		bot.NewTelegramMessenger(api),
		bot.Options{Flow: flow, SignatureName: cfg.SignatureName},
	)

	return &application{api: api, store: store, controller: controller}, nil
}

func (a *application) close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close conversation store")
	}
}

// purgeStaleConversations periodically drops abandoned conversations from
// stores without native expiry
func (a *application) purgeStaleConversations(ctx context.Context, olderThan time.Duration) {
	purger, ok := a.store.(session.Purger)
	if !ok {
		return
	}

	ticker := time.NewTicker(purgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeStale(ctx, olderThan)
			if err != nil {
				log.Error().Err(err).Msg("Error purging stale conversations")
				continue
			}
			if n > 0 {
				log.Info().Int("purged", n).Msg("Purged stale conversations")
			}
		}
	}
}
