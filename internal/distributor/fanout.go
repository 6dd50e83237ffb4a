package distributor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/domain"
	"github.com/sidereusnuntius/courier/internal/queue"
)

// maxCollectionPages caps remote collection pagination so a hostile or broken
// collection cannot keep a worker busy forever.
const maxCollectionPages = 100

// collectionPage is the shape of one page of a remote collection.
type collectionPage struct {
	Items []string `json:"items"`
	Next  string   `json:"next,omitempty"`
}

// HandleFanout runs on the task queue. It expands remote collections, resolves
// inbox URLs, and schedules one delivery task per target. Failures are
// per-branch: a collection that cannot be expanded, or a target that cannot be
// resolved, is logged and skipped without touching its siblings.
func (d *Distributor) HandleFanout(ctx context.Context, job queue.FanoutJob) error {
	seen := map[string]bool{job.Actor: true}
	targets := map[string]string{} // inbox url -> hostname

	for _, recipient := range job.Recipients {
		switch recipient.Kind {
		case domain.Collection, domain.Group:
			d.expandRemote(ctx, job, recipient.ID, seen, targets)
		default:
			d.addTarget(ctx, recipient.ID, seen, targets)
		}
	}

	for inbox, host := range targets {
		err := d.queue.Deliver(ctx, queue.DeliverJob{
			Host:     host,
			Inbox:    inbox,
			Activity: job.Activity,
		})
		if err != nil {
			log.Error().Err(err).Str("inbox", inbox).Msg("failed to enqueue delivery")
		}
	}

	return nil
}

// expandRemote pages through a remote collection with authenticated GETs made
// on behalf of the posting actor. Local members picked up here get a direct,
// idempotent inbox write; anything already delivered stays delivered.
func (d *Distributor) expandRemote(ctx context.Context, job queue.FanoutJob, collectionID string, seen map[string]bool, targets map[string]string) {
	creds, err := d.fed.Registry.GetFor(ctx, domain.Webfinger(job.Actor), collectionID)
	if err != nil {
		log.Error().Err(err).Str("collection", collectionID).Msg("skipping unexpandable collection")
		return
	}

	next := collectionID
	for page := 0; next != "" && page < maxCollectionPages; page++ {
		var doc collectionPage
		if err := d.fed.Client.GetJSONAs(ctx, next, creds, &doc); err != nil {
			log.Error().Err(err).Str("collection", collectionID).Msg("collection page fetch failed")
			return
		}

		for _, member := range doc.Items {
			if seen[member] {
				continue
			}
			seen[member] = true

			if domain.RecipientHost(member) == d.cfg.Hostname {
				d.writeLocal(ctx, member, job)
				continue
			}
			d.addTarget(ctx, member, seen, targets)
		}

		next = doc.Next
	}
}

// addTarget resolves a remote person's inbox and records it once.
func (d *Distributor) addTarget(ctx context.Context, id string, seen map[string]bool, targets map[string]string) {
	seen[id] = true

	host := domain.RecipientHost(id)
	if host == "" {
		log.Warn().Str("id", id).Msg("recipient without a host, skipping")
		return
	}

	inbox := d.inboxFor(ctx, id, host)
	if inbox == "" {
		return
	}
	targets[inbox] = host
}

// inboxFor prefers the inbox cached by the user-discovery layer and falls
// back to the conventional inbox path.
func (d *Distributor) inboxFor(ctx context.Context, id, host string) string {
	actor, err := d.db.GetActor(ctx, id)
	if err == nil && actor.Inbox != "" {
		return actor.Inbox
	}
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Error().Err(err).Str("id", id).Msg("actor lookup failed")
		return ""
	}

	user, _, ok := domain.SplitAcct(id)
	if !ok {
		log.Warn().Str("id", id).Msg("cannot derive an inbox for recipient")
		return ""
	}
	return config.InstanceURL(host, d.cfg.Https).JoinPath("api", "user", user, "inbox").String()
}

// writeLocal is the inbox write for a local member surfaced by remote
// expansion. Idempotence on (actor, activity id) makes it safe next to the
// synchronous write path.
func (d *Distributor) writeLocal(ctx context.Context, member string, job queue.FanoutJob) {
	actor, err := d.db.GetActor(ctx, member)
	if err != nil {
		log.Warn().Err(err).Str("id", member).Msg("unknown local member, skipping")
		return
	}
	if err := d.db.AddToInbox(ctx, actor.ID, job.ActivityID, job.Activity); err != nil {
		log.Error().Err(err).Str("actor", actor.ID).Msg("inbox write failed")
	}
}
