package db

import (
	"context"

	"github.com/sidereusnuntius/courier/internal/domain"
)

type Hosts interface {
	GetHost(ctx context.Context, hostname string) (domain.Host, error)
	// CreateHost inserts a discovered host record. Returns ErrDuplicate when
	// a concurrent discovery won the race for the same hostname.
	CreateHost(ctx context.Context, host domain.Host) error
}
