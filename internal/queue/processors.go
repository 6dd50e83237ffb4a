package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DeliveryError reports one failed remote POST. It never travels further than
// the task that raised it.
type DeliveryError struct {
	Inbox string
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s: %s", e.Inbox, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// deliverJob posts the activity to one inbox. Credential acquisition may
// trigger discovery and dialback on first contact with the host; any failure
// is logged and ends this task only.
func (q *queueImpl) deliverJob(ctx context.Context, job DeliverJob) error {
	creds, err := q.fed.Registry.GetForHost(ctx, job.Host)
	if err != nil {
		log.Error().Err(err).Str("host", job.Host).Msg("no credentials for delivery")
		return err
	}

	if err = q.fed.Client.PostActivity(ctx, job.Inbox, creds, job.Activity); err != nil {
		err = &DeliveryError{Inbox: job.Inbox, Err: err}
		log.Error().Err(err).Msg("delivery failed")
		return err
	}

	log.Debug().Str("inbox", job.Inbox).Msg("delivered activity")
	return nil
}

// firehoseJob pings the firehose endpoint. Best effort: the outcome is logged
// and the task always succeeds.
func (q *queueImpl) firehoseJob(ctx context.Context, job FirehoseJob) error {
	if err := q.fed.Client.PostJSON(ctx, job.URL, job.Activity); err != nil {
		log.Error().Err(err).Str("url", job.URL).Msg("firehose notification failed")
	}
	return nil
}
