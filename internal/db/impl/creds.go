package impl

import (
	"context"
	"database/sql"
	"time"

	"github.com/sidereusnuntius/courier/internal/domain"
)

func (d *dbImpl) GetCredentials(ctx context.Context, key string) (creds domain.Credentials, err error) {
	row := d.db.QueryRowContext(ctx, `SELECT
			cred_key, client_id, client_secret, expires_at, created, updated
		FROM credentials WHERE cred_key = ?`, key)

	var expires sql.NullTime
	err = d.HandleError(row.Scan(
		&creds.Key,
		&creds.ClientID,
		&creds.ClientSecret,
		&expires,
		&creds.Created,
		&creds.Updated,
	))
	if expires.Valid {
		creds.ExpiresAt = expires.Time
	}
	return
}

func (d *dbImpl) CreateCredentials(ctx context.Context, creds domain.Credentials) error {
	var expires any
	if !creds.ExpiresAt.IsZero() {
		expires = creds.ExpiresAt
	}
	_, err := d.db.ExecContext(ctx, `INSERT INTO credentials(
			cred_key, client_id, client_secret, expires_at, created, updated
		) VALUES (?,?,?,?,?,?)
		ON CONFLICT(cred_key) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			expires_at = excluded.expires_at,
			updated = excluded.updated`,
		creds.Key, creds.ClientID, creds.ClientSecret, expires, creds.Created, creds.Updated)
	return d.HandleError(err)
}

func (d *dbImpl) TouchCredentials(ctx context.Context, key string) error {
	res, err := d.db.ExecContext(ctx,
		"UPDATE credentials SET updated = ? WHERE cred_key = ?",
		time.Now().UTC(), key)
	if err != nil {
		return d.HandleError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return d.HandleError(sql.ErrNoRows)
	}
	return nil
}

func (d *dbImpl) CreateClient(ctx context.Context, clientID, clientSecret, owner string) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO clients(client_id, client_secret, owner) VALUES (?,?,?)",
		clientID, clientSecret, owner)
	return d.HandleError(err)
}

func (d *dbImpl) GetClientSecret(ctx context.Context, clientID string) (secret string, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT client_secret FROM clients WHERE client_id = ?", clientID)
	err = d.HandleError(row.Scan(&secret))
	return
}

func (d *dbImpl) CountClientsFor(ctx context.Context, owner string) (count int64, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT COUNT(client_id) FROM clients WHERE owner = ?", owner)
	err = d.HandleError(row.Scan(&count))
	return
}
