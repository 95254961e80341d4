// Package sessiontest holds behaviour checks shared by every session.Store
// backend.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a store created by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Run("missing chat is empty", func(t *testing.T) {
		s := newStore(t)
		st, err := s.Get(context.Background(), 42)
		require.NoError(t, err)
		assert.True(t, st.IsEmpty())
		assert.Equal(t, session.StageIdle, st.CurrentStage())
	})

	t.Run("update persists zero values", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Update(ctx, 1, func(st *session.State) error {
			inst := catalog.Instrument{Symbol: "WBTC", Index: 0}
			kind := prediction.Open
			st.Stage = session.StageAwaitingDate
			st.Instrument = &inst
			st.PriceKind = &kind
			return nil
		})
		require.NoError(t, err)

		st, err := s.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, st.Instrument)
		require.NotNil(t, st.PriceKind)
		assert.Equal(t, 0, st.Instrument.Index)
		assert.Equal(t, prediction.Open, *st.PriceKind)
		assert.Nil(t, st.Date)
		assert.Equal(t, session.StageAwaitingDate, st.Stage)
		assert.False(t, st.UpdatedAt.IsZero())
	})

	t.Run("chats are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Update(ctx, 1, func(st *session.State) error {
			st.Stage = session.StageAwaitingInstrument
			return nil
		})
		require.NoError(t, err)

		other, err := s.Get(ctx, 2)
		require.NoError(t, err)
		assert.True(t, other.IsEmpty())
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")

		_, err := s.Update(ctx, 7, func(st *session.State) error {
			st.Stage = session.StageAwaitingDate
			return boom
		})
		require.ErrorIs(t, err, boom)

		st, err := s.Get(ctx, 7)
		require.NoError(t, err)
		assert.True(t, st.IsEmpty())
	})

	t.Run("reset and clear empty the record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		date := "2024-01-27"

		_, err := s.Update(ctx, 3, func(st *session.State) error {
			st.Stage = session.StageDispatching
			st.Date = &date
			return nil
		})
		require.NoError(t, err)

		_, err = s.Update(ctx, 3, func(st *session.State) error {
			st.Reset()
			return nil
		})
		require.NoError(t, err)
		st, err := s.Get(ctx, 3)
		require.NoError(t, err)
		assert.True(t, st.IsEmpty())

		_, err = s.Update(ctx, 3, func(st *session.State) error {
			st.Stage = session.StageAwaitingInstrument
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx, 3))
		st, err = s.Get(ctx, 3)
		require.NoError(t, err)
		assert.True(t, st.IsEmpty())
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const n = 20

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, 9, func(st *session.State) error {
					// the instrument index doubles as a counter here
					inst := catalog.Instrument{Symbol: "CTR"}
					if st.Instrument != nil {
						inst.Index = st.Instrument.Index + 1
					} else {
						inst.Index = 1
					}
					st.Stage = session.StageAwaitingDate
					st.Instrument = &inst
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		st, err := s.Get(ctx, 9)
		require.NoError(t, err)
		require.NotNil(t, st.Instrument)
		assert.Equal(t, n, st.Instrument.Index)
	})
}
