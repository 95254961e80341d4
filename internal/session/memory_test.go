package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/Alias1177/TokenPredictor/internal/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) session.Store {
		s := session.NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Update(ctx, 1, func(st *session.State) error {
		st.Stage = session.StageAwaitingDate
		st.Instrument = &catalog.Instrument{Symbol: "ETH", Index: 9}
		return nil
	})
	require.NoError(t, err)

	st, err := s.Get(ctx, 1)
	require.NoError(t, err)
	st.Instrument.Index = 100

	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, again.Instrument.Index)
}

func TestMemoryStorePurgeStale(t *testing.T) {
	s := session.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Update(ctx, 1, func(st *session.State) error {
		st.Stage = session.StageAwaitingInstrument
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	n, err := s.PurgeStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.PurgeStale(ctx, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreClosed(t *testing.T) {
	s := session.NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), 1)
	assert.ErrorIs(t, err, session.ErrClosed)
}

func TestStateIsEmpty(t *testing.T) {
	assert.True(t, session.State{}.IsEmpty())
	assert.True(t, session.State{Stage: session.StageIdle}.IsEmpty())
	assert.False(t, session.State{Stage: session.StageAwaitingInstrument}.IsEmpty())

	date := "2024-01-27"
	assert.False(t, session.State{Date: &date}.IsEmpty())
}
