package sessionstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"punchsync/internal/assert"
	"punchsync/internal/components/chrono"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

const MemoryDatabase = ":memory:"

// Store keeps flags that live for one browsing session, the equivalent of
// the browser's sessionStorage for a process that outlives many sessions.
type Store struct {
	db    *sql.DB
	clock chrono.TimeAPI
}

// Open opens (and creates) the sqlite database at path, an empty path opens
// an in-memory database.
func Open(ctx context.Context, path string, clock chrono.TimeAPI) (Store, error) {
	if path == "" {
		path = MemoryDatabase
	}
	if path != MemoryDatabase {
		err := os.MkdirAll(filepath.Dir(path), 0o755)
		if err != nil {
			return Store{}, fmt.Errorf("create state directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// every connection to :memory: would be its own database
	database.SetMaxOpenConns(1)

	_, err = database.ExecContext(ctx, Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply session store schema: %w", err)
	}
	return NewStore(database, clock), nil
}

func NewStore(database *sql.DB, clock chrono.TimeAPI) Store {
	assert.NotNil(database, "session store database")
	if clock == nil {
		clock = chrono.NewStandardTime()
	}
	return Store{db: database, clock: clock}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Once raises the flag name for the session, it returns true only when the
// flag was not already raised. The flag expires after ttl, which starts a
// new session as far as the flag is concerned.
func (s Store) Once(ctx context.Context, session, name string, ttl time.Duration) (bool, error) {
	assert.NotEmptyStr(name, "flag name")
	now := s.clock.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		"delete from session_flags where expires_at <= ?",
		now.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("delete expired flags: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		"insert or ignore into session_flags(session, name, expires_at) values (?, ?, ?)",
		session, name, now.Add(ttl).Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("raise flag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	err = tx.Commit()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SessionID identifies a browsing session by the site and the cookie it is
// browsed with, logging in again starts a new session.
func SessionID(pageUrl, cookie string) string {
	site := pageUrl
	parsed, err := url.Parse(pageUrl)
	if err == nil && parsed.Host != "" {
		site = parsed.Scheme + "://" + parsed.Host
	}
	sum := sha256.Sum256([]byte(site + "\n" + cookie))
	return hex.EncodeToString(sum[:])
}
