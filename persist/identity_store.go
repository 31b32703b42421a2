package persist

import (
	"context"
	"database/sql"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"convokit/core"
)

// IdentityStore remembers the signed-in identity in a SQLite file. It holds at most one row.
type IdentityStore struct {
	db *sql.DB
}

// NewIdentityStore opens (and if needed creates) the database at dbPath.
func NewIdentityStore(dbPath string) (*IdentityStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS identity (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			user_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			update_timestamp INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating identity table")
	}

	return &IdentityStore{db: db}, nil
}

// Load returns the remembered identity, or nil when nobody is remembered.
func (s *IdentityStore) Load(ctx context.Context) (*core.Identity, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM identity WHERE slot = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying identity")
	}

	identity := &core.Identity{}
	if err := sonic.UnmarshalString(payload, identity); err != nil {
		return nil, errors.Wrap(err, "unmarshaling identity")
	}
	return identity, nil
}

// Save replaces the remembered identity.
func (s *IdentityStore) Save(ctx context.Context, identity core.Identity) error {
	payload, err := sonic.MarshalString(identity)
	if err != nil {
		return errors.Wrap(err, "marshaling identity")
	}

	// REPLACE INTO keeps the single-row invariant
	_, err = s.db.ExecContext(ctx, `
		REPLACE INTO identity (slot, user_id, payload, update_timestamp)
		VALUES (1, ?, ?, ?)
	`, identity.ID, payload, time.Now().UnixMicro())
	if err != nil {
		return errors.Wrap(err, "writing identity to database")
	}
	return nil
}

// Clear forgets the identity. Clearing an empty store is not an error.
func (s *IdentityStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identity`); err != nil {
		return errors.Wrap(err, "deleting identity")
	}
	return nil
}

// Close closes the database connection.
func (s *IdentityStore) Close() error {
	return s.db.Close()
}
