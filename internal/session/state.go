package session

import (
	"context"
	"errors"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
)

// Stage is the position of a chat in the prediction dialog
type Stage string

const (
	StageIdle               Stage = "idle"
	StageAwaitingInstrument Stage = "awaiting_instrument"
	StageAwaitingPriceKind  Stage = "awaiting_price_kind"
	StageAwaitingDate       Stage = "awaiting_date"
	StageDispatching        Stage = "dispatching"
)

// State is the per-chat conversation record. Optional selections are
// pointers: a nil field was never chosen, while index 0 or the OPEN price
// kind are ordinary values.
type State struct {
	Stage      Stage                 `json:"stage"`
	Instrument *catalog.Instrument   `json:"instrument,omitempty"`
	Date       *string               `json:"date,omitempty"`
	PriceKind  *prediction.PriceKind `json:"price_kind,omitempty"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// IsEmpty reports whether the record carries no selection and no pending prompt
func (s State) IsEmpty() bool {
	return (s.Stage == "" || s.Stage == StageIdle) &&
		s.Instrument == nil && s.Date == nil && s.PriceKind == nil
}

// Reset clears the record back to Idle
func (s *State) Reset() {
	*s = State{Stage: StageIdle}
}

// CurrentStage treats a never-written record as Idle
func (s State) CurrentStage() Stage {
	if s.Stage == "" {
		return StageIdle
	}
	return s.Stage
}

// ErrClosed is returned by stores used after Close
var ErrClosed = errors.New("session store closed")

// Store keeps conversation state keyed by chat id. Update is a
// read-modify-write unit: fn sees the latest record and its result is
// written atomically with respect to other updates of the same chat. fn may
// run more than once on optimistic backends, so it must not have side
// effects. When fn returns an error nothing is written.
type Store interface {
	Get(ctx context.Context, chatID int64) (State, error)
	Update(ctx context.Context, chatID int64, fn func(*State) error) (State, error)
	Clear(ctx context.Context, chatID int64) error
	Close() error
}

// Purger is implemented by stores without native expiry
type Purger interface {
	PurgeStale(ctx context.Context, olderThan time.Duration) (int, error)
}
