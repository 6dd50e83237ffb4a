package impl

import (
	"context"

	"github.com/sidereusnuntius/courier/internal/domain"
)

func (d *dbImpl) GetHost(ctx context.Context, hostname string) (host domain.Host, err error) {
	row := d.db.QueryRowContext(ctx, `SELECT
			hostname,
			registration_endpoint,
			request_token_endpoint,
			access_token_endpoint,
			authorization_endpoint,
			whoami_endpoint,
			created,
			updated
		FROM hosts WHERE hostname = ?`, hostname)

	err = d.HandleError(row.Scan(
		&host.Hostname,
		&host.RegistrationEndpoint,
		&host.RequestTokenEndpoint,
		&host.AccessTokenEndpoint,
		&host.AuthorizationEndpoint,
		&host.WhoamiEndpoint,
		&host.Created,
		&host.Updated,
	))
	return
}

func (d *dbImpl) CreateHost(ctx context.Context, host domain.Host) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO hosts(
			hostname,
			registration_endpoint,
			request_token_endpoint,
			access_token_endpoint,
			authorization_endpoint,
			whoami_endpoint,
			created,
			updated
		) VALUES (?,?,?,?,?,?,?,?)`,
		host.Hostname,
		host.RegistrationEndpoint,
		host.RequestTokenEndpoint,
		host.AccessTokenEndpoint,
		host.AuthorizationEndpoint,
		host.WhoamiEndpoint,
		host.Created,
		host.Updated,
	)
	return d.HandleError(err)
}
