package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	repoIface "github.com/quipper/poc/lti/tool/pkg/repositories/launches"
)

// SQLiteRepo backs the launch-state cache and OIDC login state/nonce rows.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Pragmas safe for simple single-process usage
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS login_states (
    state TEXT PRIMARY KEY,
    nonce TEXT NOT NULL,
    issuer TEXT NOT NULL,
    client_id TEXT,
    target_link_uri TEXT,
    expires_at TIMESTAMP NOT NULL,
    used INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_login_states_expires_at ON login_states(expires_at);

CREATE TABLE IF NOT EXISTS launches (
    id TEXT PRIMARY KEY,
    issuer TEXT NOT NULL,
    client_id TEXT,
    claims_json TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_launches_expires_at ON launches(expires_at);
`)
	return err
}

func (r *SQLiteRepo) Health() error { return r.db.Ping() }

func (r *SQLiteRepo) Disconnect() { _ = r.db.Close() }

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

func (r *SQLiteRepo) CreateLoginState(ctx context.Context, state, nonce, issuer, clientID, targetLinkURI string, exp time.Time) error {
	if state == "" || nonce == "" {
		return errors.New("empty state or nonce")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Cleanup expired/used rows (best-effort)
	_, _ = tx.ExecContext(ctx, "DELETE FROM login_states WHERE expires_at < CURRENT_TIMESTAMP OR used = 1")

	_, err = tx.ExecContext(ctx, `INSERT INTO login_states (state, nonce, issuer, client_id, target_link_uri, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		state, nonce, issuer, clientID, targetLinkURI, exp.UTC())
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepo) ConsumeLoginState(ctx context.Context, state string) (nonce, issuer, clientID, targetLinkURI string, ok bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", "", "", false, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT nonce, issuer, client_id, target_link_uri, expires_at, used FROM login_states WHERE state = ?`, state)
	var exp time.Time
	var used int
	if err := row.Scan(&nonce, &issuer, &clientID, &targetLinkURI, &exp, &used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", "", "", false, nil
		}
		return "", "", "", "", false, err
	}
	if used == 1 || time.Now().After(exp) {
		return "", "", "", "", false, nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE login_states SET used = 1 WHERE state = ?`, state); err != nil {
		return "", "", "", "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", "", "", "", false, err
	}
	return nonce, issuer, clientID, targetLinkURI, true, nil
}

func (r *SQLiteRepo) PutLaunch(ctx context.Context, l *repoIface.Launch) error {
	if l.ID == "" {
		return errors.New("empty launch id")
	}
	now := time.Now().UTC()
	// Purge expired entries opportunistically
	_, _ = r.db.ExecContext(ctx, "DELETE FROM launches WHERE expires_at < CURRENT_TIMESTAMP")
	_, err := r.db.ExecContext(ctx, `INSERT INTO launches (id, issuer, client_id, claims_json, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Issuer, l.ClientID, l.ClaimsJSON, l.ExpiresAt.UTC(), now)
	if err != nil {
		return err
	}
	l.CreatedAt = now
	return nil
}

func (r *SQLiteRepo) GetLaunch(ctx context.Context, id string) (*repoIface.Launch, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, issuer, client_id, claims_json, expires_at, created_at FROM launches WHERE id = ?`, id)
	var l repoIface.Launch
	if err := row.Scan(&l.ID, &l.Issuer, &l.ClientID, &l.ClaimsJSON, &l.ExpiresAt, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if time.Now().After(l.ExpiresAt) {
		return nil, false, nil
	}
	return &l, true, nil
}
