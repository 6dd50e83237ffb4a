package impl

import (
	"context"

	"github.com/sidereusnuntius/courier/internal/domain"
)

func (d *dbImpl) GetActor(ctx context.Context, id string) (actor domain.Actor, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, nickname, hostname, inbox, local FROM actors WHERE id = ?", id)
	err = d.HandleError(row.Scan(&actor.ID, &actor.Nickname, &actor.Hostname, &actor.Inbox, &actor.Local))
	return
}

func (d *dbImpl) GetActorByNickname(ctx context.Context, nickname string) (actor domain.Actor, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT id, nickname, hostname, inbox, local FROM actors WHERE nickname = ? AND local = TRUE",
		nickname)
	err = d.HandleError(row.Scan(&actor.ID, &actor.Nickname, &actor.Hostname, &actor.Inbox, &actor.Local))
	return
}

func (d *dbImpl) CreateActor(ctx context.Context, actor domain.Actor) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO actors(id, nickname, hostname, inbox, local) VALUES (?,?,?,?,?)",
		actor.ID, actor.Nickname, actor.Hostname, actor.Inbox, actor.Local)
	return d.HandleError(err)
}
