package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	repoIface "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
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
        CREATE TABLE IF NOT EXISTS platforms (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            issuer TEXT NOT NULL,
            client_id TEXT NOT NULL,
            auth_login_url TEXT,
            auth_token_url TEXT,
            key_set_url TEXT,
            deployment_id TEXT,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(issuer, client_id)
        );
        CREATE INDEX IF NOT EXISTS idx_platforms_issuer ON platforms(issuer);
    `)
	return err
}

// Ensure interface compliance
var _ repoIface.Repository = (*SQLiteRepo)(nil)

func (r *SQLiteRepo) Health() error {
	return r.db.Ping()
}

func (r *SQLiteRepo) Disconnect() {
	_ = r.db.Close()
}

// RegisterPlatform inserts a registration, replacing any previous record
// for the same issuer+client_id (re-registration). RETURNING id covers the
// update path too; LastInsertId would report the connection's last insert,
// not the updated row.
func (r *SQLiteRepo) RegisterPlatform(ctx context.Context, p *repoIface.Platform) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO platforms (name, issuer, client_id, auth_login_url, auth_token_url, key_set_url, deployment_id, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(issuer, client_id)
        DO UPDATE SET name = excluded.name, auth_login_url = excluded.auth_login_url,
            auth_token_url = excluded.auth_token_url, key_set_url = excluded.key_set_url,
            deployment_id = excluded.deployment_id
        RETURNING id
    `, p.Name, p.Issuer, p.ClientID, p.AuthLoginURL, p.AuthTokenURL, p.KeySetURL, p.DeploymentID, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.CreatedAt = now
	return id, nil
}

func (r *SQLiteRepo) ListPlatforms(ctx context.Context) ([]*repoIface.Platform, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, issuer, client_id, auth_login_url, auth_token_url, key_set_url, deployment_id, created_at FROM platforms ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*repoIface.Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) GetPlatform(ctx context.Context, issuer, clientID string) (*repoIface.Platform, error) {
	var row *sql.Row
	if clientID != "" {
		row = r.db.QueryRowContext(ctx, `SELECT id, name, issuer, client_id, auth_login_url, auth_token_url, key_set_url, deployment_id, created_at FROM platforms WHERE issuer = ? AND client_id = ?`, issuer, clientID)
	} else {
		row = r.db.QueryRowContext(ctx, `SELECT id, name, issuer, client_id, auth_login_url, auth_token_url, key_set_url, deployment_id, created_at FROM platforms WHERE issuer = ? ORDER BY id ASC LIMIT 1`, issuer)
	}
	return scanPlatform(row)
}

func (r *SQLiteRepo) GetPlatformByID(ctx context.Context, id int64) (*repoIface.Platform, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, issuer, client_id, auth_login_url, auth_token_url, key_set_url, deployment_id, created_at FROM platforms WHERE id = ?`, id)
	return scanPlatform(row)
}

func (r *SQLiteRepo) DeletePlatformByID(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM platforms WHERE id = ?`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlatform(s scanner) (*repoIface.Platform, error) {
	var p repoIface.Platform
	var created time.Time
	err := s.Scan(&p.ID, &p.Name, &p.Issuer, &p.ClientID, &p.AuthLoginURL, &p.AuthTokenURL, &p.KeySetURL, &p.DeploymentID, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = created
	return &p, nil
}
