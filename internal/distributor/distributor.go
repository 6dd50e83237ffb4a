// Package distributor resolves a freshly created activity's audience into
// local and remote delivery targets and fans it out. Local inboxes are
// written before Distribute returns; everything remote-facing is scheduled on
// the task queue and never affects the outcome the poster sees.
package distributor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
	"github.com/sidereusnuntius/courier/internal/domain"
	"github.com/sidereusnuntius/courier/internal/federation"
	"github.com/sidereusnuntius/courier/internal/queue"
	"github.com/sidereusnuntius/courier/internal/validate"
)

const pageSize = 50

type Distributor struct {
	fed   *federation.Context
	db    db.DB
	queue queue.Queue
	cfg   *config.Configuration
}

func New(fed *federation.Context, d db.DB, q queue.Queue, cfg *config.Configuration) *Distributor {
	return &Distributor{
		fed:   fed,
		db:    d,
		queue: q,
		cfg:   cfg,
	}
}

// targetSet is the partitioned, deduplicated result of audience resolution.
type targetSet struct {
	public bool
	// local actor ids receiving a direct inbox write.
	local []string
	// remote persons plus remote collections left for asynchronous expansion.
	remote []domain.Recipient
}

// Distribute delivers the activity to its audience. The returned error only
// ever reflects local validation; later failures are logged, isolated and
// invisible to the caller, whose post has already succeeded.
func (d *Distributor) Distribute(ctx context.Context, activity *domain.Activity) error {
	if err := validate.Activity(activity); err != nil {
		return err
	}

	set, err := d.resolve(ctx, activity)
	if err != nil {
		// Resolution only fails on storage trouble; the poster still gets a
		// success, matching every other post-validation failure.
		log.Error().Err(err).Str("activity", activity.ID).Msg("audience resolution failed")
		return nil
	}

	raw, err := activity.PublicCopy()
	if err != nil {
		log.Error().Err(err).Str("activity", activity.ID).Msg("activity serialization failed")
		return nil
	}

	if domain.RecipientHost(activity.Actor.ID) == d.cfg.Hostname {
		if err = d.db.AddToOutbox(ctx, activity.Actor.ID, activity.ID, raw); err != nil {
			log.Error().Err(err).Str("actor", activity.Actor.ID).Msg("outbox write failed")
		}
	}

	for _, actorID := range set.local {
		if err = d.db.AddToInbox(ctx, actorID, activity.ID, raw); err != nil {
			log.Error().Err(err).Str("actor", actorID).Msg("inbox write failed")
		}
	}

	if len(set.remote) > 0 {
		job := queue.FanoutJob{
			ActivityID: activity.ID,
			Actor:      activity.Actor.ID,
			Activity:   raw,
			Recipients: set.remote,
		}
		if err = d.queue.Fanout(ctx, job); err != nil {
			log.Error().Err(err).Str("activity", activity.ID).Msg("failed to enqueue remote fanout")
		}
	}

	if set.public && d.cfg.FirehoseUrl != "" {
		job := queue.FirehoseJob{URL: d.cfg.FirehoseUrl, Activity: raw}
		if err = d.queue.Firehose(ctx, job); err != nil {
			log.Error().Err(err).Msg("failed to enqueue firehose notification")
		}
	}

	return nil
}

// resolve collects the audience, expands local collections and deduplicates.
// Remote collections stay unexpanded; their members are resolved at delivery
// time, on the queue.
func (d *Distributor) resolve(ctx context.Context, activity *domain.Activity) (set targetSet, err error) {
	seen := map[string]bool{
		// The poster never receives their own activity back.
		activity.Actor.ID: true,
	}

	for _, recipient := range activity.Audience() {
		if recipient.IsPublic() {
			set.public = true
			continue
		}
		if seen[recipient.ID] {
			continue
		}
		seen[recipient.ID] = true

		switch {
		case recipient.Kind == domain.Person:
			d.addPerson(ctx, &set, recipient.ID)
		case domain.RecipientHost(recipient.ID) == d.cfg.Hostname:
			if err = d.expandLocal(ctx, &set, seen, recipient.ID); err != nil {
				return set, err
			}
		default:
			set.remote = append(set.remote, recipient)
		}
	}

	return set, nil
}

// expandLocal pages through a local collection's current membership. Members
// are whoever belongs right now; a member who left since the post was
// addressed simply is not here anymore.
func (d *Distributor) expandLocal(ctx context.Context, set *targetSet, seen map[string]bool, collectionID string) error {
	for offset := int64(0); ; offset += pageSize {
		members, err := d.db.GetMembersPage(ctx, collectionID, offset, pageSize)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if len(members) == 0 {
			return nil
		}

		for _, member := range members {
			if seen[member] {
				continue
			}
			seen[member] = true
			d.addPerson(ctx, set, member)
		}
	}
}

func (d *Distributor) addPerson(ctx context.Context, set *targetSet, id string) {
	if domain.RecipientHost(id) != d.cfg.Hostname {
		set.remote = append(set.remote, domain.Recipient{Kind: domain.Person, ID: id})
		return
	}

	actor, err := d.db.GetActor(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("id", id).Msg("unknown local recipient, skipping")
		return
	}
	set.local = append(set.local, actor.ID)
}
