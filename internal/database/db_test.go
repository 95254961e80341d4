package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/Alias1177/TokenPredictor/internal/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB needs a disposable database, e.g.
// TEST_DATABASE_DSN="host=localhost port=5432 user=postgres password=postgres dbname=tokenbot_test sslmode=disable"
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE conversation_states`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresStore(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) session.Store {
		return openTestDB(t)
	})
}

func TestPostgresPurgeStale(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Update(ctx, 11, func(st *session.State) error {
		st.Stage = session.StageAwaitingInstrument
		return nil
	})
	require.NoError(t, err)

	n, err := db.PurgeStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = db.PurgeStale(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConnectionParamsDSN(t *testing.T) {
	p := ConnectionParams{Host: "db", Port: "5432", User: "bot", Password: "secret", DBName: "tokens"}
	assert.Equal(t, "host=db port=5432 user=bot password=secret dbname=tokens sslmode=disable", p.DSN())

	p.SSLMode = "require"
	assert.Contains(t, p.DSN(), "sslmode=require")
}
