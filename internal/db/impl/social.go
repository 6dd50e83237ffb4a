package impl

import "context"

func (d *dbImpl) GetMembersPage(ctx context.Context, collectionID string, offset, limit int64) (members []string, err error) {
	rows, err := d.db.QueryContext(ctx, `SELECT member_id FROM memberships
			WHERE collection_id = ?
			ORDER BY rowid
			LIMIT ? OFFSET ?`,
		collectionID, limit, offset)
	if err != nil {
		return nil, d.HandleError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var member string
		if err = rows.Scan(&member); err != nil {
			return nil, d.HandleError(err)
		}
		members = append(members, member)
	}
	return members, d.HandleError(rows.Err())
}

func (d *dbImpl) AddMember(ctx context.Context, collectionID, memberID string) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO memberships(collection_id, member_id) VALUES (?,?)",
		collectionID, memberID)
	return d.HandleError(err)
}

func (d *dbImpl) RemoveMember(ctx context.Context, collectionID, memberID string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM memberships WHERE collection_id = ? AND member_id = ?",
		collectionID, memberID)
	return d.HandleError(err)
}
