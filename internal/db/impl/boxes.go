package impl

import "context"

func (d *dbImpl) AddToInbox(ctx context.Context, actorID, activityID string, activity []byte) error {
	// Idempotent on (actor, activity id): duplicate deliveries are dropped.
	_, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO inboxes(actor_id, activity_id, activity) VALUES (?,?,?)",
		actorID, activityID, activity)
	return d.HandleError(err)
}

func (d *dbImpl) InboxContains(ctx context.Context, actorID, activityID string) (contains bool, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT TRUE FROM inboxes WHERE actor_id = ? AND activity_id = ?)",
		actorID, activityID)
	err = d.HandleError(row.Scan(&contains))
	return
}

func (d *dbImpl) CountInbox(ctx context.Context, actorID string) (count int64, err error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT COUNT(activity_id) FROM inboxes WHERE actor_id = ?", actorID)
	err = d.HandleError(row.Scan(&count))
	return
}

func (d *dbImpl) AddToOutbox(ctx context.Context, actorID, activityID string, activity []byte) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO outboxes(actor_id, activity_id, activity) VALUES (?,?,?)",
		actorID, activityID, activity)
	return d.HandleError(err)
}
