// Package redisstore keeps conversation state in Redis so pending prompts
// survive restarts and idle conversations expire on their own.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix = "tokenbot:conversation:"
	// optimistic transaction attempts before giving up on a contended key
	maxTxAttempts = 32
)

// Store implements session.Store on top of a Redis client
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New wraps an existing client. ttl bounds the lifetime of an idle
// conversation; zero disables expiry.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "redis_store").Logger(),
	}
}

// Connect dials addr and verifies the connection
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	s := New(client, ttl)
	s.logger.Info().Str("addr", addr).Dur("ttl", ttl).Msg("Connected to Redis")
	return s, nil
}

func key(chatID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, chatID)
}

func (s *Store) Get(ctx context.Context, chatID int64) (session.State, error) {
	return load(ctx, s.client, key(chatID))
}

func (s *Store) Update(ctx context.Context, chatID int64, fn func(*session.State) error) (session.State, error) {
	k := key(chatID)
	var result session.State

	txf := func(tx *redis.Tx) error {
		st, err := load(ctx, tx, k)
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
			return err
		}

		if st.IsEmpty() {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, k)
				return nil
			})
		} else {
			st.UpdatedAt = time.Now().UTC()
			data, merr := json.Marshal(st)
			if merr != nil {
				return fmt.Errorf("encoding state: %w", merr)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, data, s.ttl)
				return nil
			})
		}
		if err == nil {
			result = st
		}
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Int64("chat_id", chatID).Int("attempt", attempt).Msg("Conversation key changed concurrently, retrying")
			continue
		}
		return session.State{}, err
	}
	return session.State{}, fmt.Errorf("updating chat %d: %w", chatID, redis.TxFailedErr)
}

func (s *Store) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, key(chatID)).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, k string) (session.State, error) {
	data, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.State{Stage: session.StageIdle}, nil
	}
	if err != nil {
		return session.State{}, fmt.Errorf("reading state: %w", err)
	}
	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return session.State{}, fmt.Errorf("decoding state: %w", err)
	}
	return st, nil
}
