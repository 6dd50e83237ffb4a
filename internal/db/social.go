package db

import "context"

// Social exposes the membership queries the distributor consumes. Followers
// collections, lists and group rosters all live behind the same shape: a
// collection id mapping to member actor ids. The CRUD that maintains them
// belongs to the (external) membership layer.
type Social interface {
	// GetMembersPage returns one page of a collection's members, ordered by
	// insertion. An empty page means the collection is exhausted.
	GetMembersPage(ctx context.Context, collectionID string, offset, limit int64) ([]string, error)
	AddMember(ctx context.Context, collectionID, memberID string) error
	RemoveMember(ctx context.Context, collectionID, memberID string) error
}
