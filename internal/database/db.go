package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
	"github.com/Alias1177/TokenPredictor/internal/session"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB is a PostgreSQL-backed session.Store
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds a lib/pq connection string
func (p ConnectionParams) DSN() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, sslMode,
	)
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	return Open(params.DSN())
}

// Open connects with a raw connection string and prepares the schema
func Open(connStr string) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_states (
			chat_id BIGINT PRIMARY KEY,
			stage TEXT NOT NULL,
			symbol TEXT,
			instrument_index INTEGER,
			target_date TEXT,
			price_kind SMALLINT,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// Get retrieves a chat's conversation state; a missing row is an empty state
func (db *DB) Get(ctx context.Context, chatID int64) (session.State, error) {
	return getState(ctx, db.DB, chatID)
}

// Update runs fn inside a transaction holding an advisory lock on the chat,
// so concurrent updates of the same chat are serialized.
func (db *DB) Update(ctx context.Context, chatID int64, fn func(*session.State) error) (session.State, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return session.State{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, chatID); err != nil {
		return session.State{}, fmt.Errorf("locking chat %d: %w", chatID, err)
	}

	st, err := getState(ctx, tx, chatID)
	if err != nil {
		return session.State{}, err
	}
	if err := fn(&st); err != nil {
		return session.State{}, err
	}

	if st.IsEmpty() {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_states WHERE chat_id = $1`, chatID); err != nil {
			return session.State{}, err
		}
	} else {
		st.UpdatedAt = time.Now().UTC()
		if err := putState(ctx, tx, chatID, st); err != nil {
			return session.State{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return session.State{}, err
	}
	return st, nil
}

// Clear removes a chat's conversation state
func (db *DB) Clear(ctx context.Context, chatID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM conversation_states WHERE chat_id = $1`, chatID)
	return err
}

// PurgeStale deletes conversations idle for longer than olderThan
func (db *DB) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM conversation_states
		WHERE updated_at < $1
	`, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getState(ctx context.Context, q queryer, chatID int64) (session.State, error) {
	var (
		st        session.State
		stage     string
		symbol    sql.NullString
		index     sql.NullInt64
		date      sql.NullString
		priceKind sql.NullInt64
	)

	err := q.QueryRowContext(ctx, `
		SELECT stage, symbol, instrument_index, target_date, price_kind, updated_at
		FROM conversation_states
		WHERE chat_id = $1
	`, chatID).Scan(&stage, &symbol, &index, &date, &priceKind, &st.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.State{Stage: session.StageIdle}, nil
		}
		return session.State{}, err
	}

	st.Stage = session.Stage(stage)
	if symbol.Valid && index.Valid {
		st.Instrument = &catalog.Instrument{Symbol: symbol.String, Index: int(index.Int64)}
	}
	if date.Valid {
		d := date.String
		st.Date = &d
	}
	if priceKind.Valid {
		k := prediction.PriceKind(priceKind.Int64)
		st.PriceKind = &k
	}
	return st, nil
}

func putState(ctx context.Context, tx *sql.Tx, chatID int64, st session.State) error {
	var (
		symbol    sql.NullString
		index     sql.NullInt64
		date      sql.NullString
		priceKind sql.NullInt64
	)
	if st.Instrument != nil {
		symbol = sql.NullString{String: st.Instrument.Symbol, Valid: true}
		index = sql.NullInt64{Int64: int64(st.Instrument.Index), Valid: true}
	}
	if st.Date != nil {
		date = sql.NullString{String: *st.Date, Valid: true}
	}
	if st.PriceKind != nil {
		priceKind = sql.NullInt64{Int64: int64(*st.PriceKind), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_states (
			chat_id, stage, symbol, instrument_index, target_date, price_kind, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chat_id)
		DO UPDATE SET
			stage = EXCLUDED.stage,
			symbol = EXCLUDED.symbol,
			instrument_index = EXCLUDED.instrument_index,
			target_date = EXCLUDED.target_date,
			price_kind = EXCLUDED.price_kind,
			updated_at = EXCLUDED.updated_at
	`, chatID, string(st.CurrentStage()), symbol, index, date, priceKind, st.UpdatedAt)
	return err
}
