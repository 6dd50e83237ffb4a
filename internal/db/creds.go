package db

import (
	"context"

	"github.com/sidereusnuntius/courier/internal/domain"
)

type Credentials interface {
	GetCredentials(ctx context.Context, key string) (domain.Credentials, error)
	// CreateCredentials upserts the credentials for their key, refreshing the
	// updated timestamp. Expired clients are overwritten in place.
	CreateCredentials(ctx context.Context, creds domain.Credentials) error
	// TouchCredentials refreshes the updated timestamp. It is the only
	// mutation credentials see after issuance.
	TouchCredentials(ctx context.Context, key string) error
}

// Clients is the server side of dynamic registration: OAuth clients we have
// issued to remote parties.
type Clients interface {
	CreateClient(ctx context.Context, clientID, clientSecret, owner string) error
	GetClientSecret(ctx context.Context, clientID string) (string, error)
	CountClientsFor(ctx context.Context, owner string) (int64, error)
}
