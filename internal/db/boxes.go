package db

import "context"

type Boxes interface {
	// AddToInbox writes an activity into an actor's inbox. Re-delivery of the
	// same activity id to the same inbox is a no-op.
	AddToInbox(ctx context.Context, actorID, activityID string, activity []byte) error
	InboxContains(ctx context.Context, actorID, activityID string) (bool, error)
	CountInbox(ctx context.Context, actorID string) (int64, error)
	AddToOutbox(ctx context.Context, actorID, activityID string, activity []byte) error
}
