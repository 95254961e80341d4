package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize bounds updates accepted but not yet handled
const DefaultQueueSize = 256

// ErrQueueFull is returned by TrySubmit when the backlog is at capacity
var ErrQueueFull = errors.New("update queue is full")

// UpdateHandler consumes one Telegram update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// UpdateHandlerFunc adapts a function to UpdateHandler
type UpdateHandlerFunc func(ctx context.Context, update tgbotapi.Update) error

func (f UpdateHandlerFunc) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	return f(ctx, update)
}

// Dispatcher feeds updates to a handler one at a time, in arrival order.
type Dispatcher struct {
	handler UpdateHandler
	queue   chan tgbotapi.Update
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher with a queue of the given size
func NewDispatcher(handler UpdateHandler, size int) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		handler: handler,
		queue:   make(chan tgbotapi.Update, size),
		logger:  log.With().Str("component", "dispatcher").Logger(),
	}
}

// TrySubmit enqueues without blocking
func (d *Dispatcher) TrySubmit(update tgbotapi.Update) error {
	select {
	case d.queue <- update:
		return nil
	default:
		return ErrQueueFull
	}
}

// Submit enqueues, waiting for room until ctx is done
func (d *Dispatcher) Submit(ctx context.Context, update tgbotapi.Update) error {
	select {
	case d.queue <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many updates wait in the queue
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run handles queued updates until ctx is cancelled, then handles whatever
// was already queued and returns. Cancelling ctx never aborts an update that
// is being handled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info().Int("queue_size", cap(d.queue)).Msg("Dispatcher started")

	handleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case update := <-d.queue:
			d.handle(handleCtx, update)
		case <-ctx.Done():
			d.drain(handleCtx)
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	n := len(d.queue)
	if n > 0 {
		d.logger.Info().Int("pending", n).Msg("Draining queued updates")
	}
	for i := 0; i < n; i++ {
		d.handle(ctx, <-d.queue)
	}
	d.logger.Info().Msg("Dispatcher stopped")
}

func (d *Dispatcher) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Int("update_id", update.UpdateID).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic while handling update")
		}
	}()

	if err := d.handler.HandleUpdate(ctx, update); err != nil {
		d.logger.Error().Err(err).Int("update_id", update.UpdateID).Msg("Failed to handle update")
	}
}
