package db

import (
	"context"

	"github.com/sidereusnuntius/courier/internal/domain"
)

type Actors interface {
	GetActor(ctx context.Context, id string) (domain.Actor, error)
	GetActorByNickname(ctx context.Context, nickname string) (domain.Actor, error)
	CreateActor(ctx context.Context, actor domain.Actor) error
}
