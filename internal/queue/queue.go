// Package queue schedules the remote-facing half of distribution on backlite
// workers, so everything that touches the network runs after the posting
// request has already been answered.
package queue

import (
	"context"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/courier/internal/federation"
)

// FanoutHandler expands the remote audience of an activity. Implemented by
// the distributor; injected at Start to keep the dependency one-way.
type FanoutHandler interface {
	HandleFanout(ctx context.Context, job FanoutJob) error
}

type Queue interface {
	Fanout(ctx context.Context, job FanoutJob) error
	Deliver(ctx context.Context, job DeliverJob) error
	Firehose(ctx context.Context, job FirehoseJob) error
	Start(ctx context.Context, handler FanoutHandler)
}

type queueImpl struct {
	fed    *federation.Context
	queues *backlite.Client
}

func New(fed *federation.Context, blClient *backlite.Client) Queue {
	return &queueImpl{
		fed:    fed,
		queues: blClient,
	}
}

func (q *queueImpl) Start(ctx context.Context, handler FanoutHandler) {
	q.queues.Register(backlite.NewQueue[FanoutJob](func(ctx context.Context, job FanoutJob) error {
		return handler.HandleFanout(ctx, job)
	}))
	q.queues.Register(backlite.NewQueue[DeliverJob](q.deliverJob))
	q.queues.Register(backlite.NewQueue[FirehoseJob](q.firehoseJob))
	q.queues.Start(ctx)
	log.Info().Msg("started task queue")
}

func (q *queueImpl) Fanout(ctx context.Context, job FanoutJob) error {
	log.Debug().Str("activity", job.ActivityID).Msg("enqueing remote fanout")
	_, err := q.queues.Add(job).Save()
	return err
}

func (q *queueImpl) Deliver(ctx context.Context, job DeliverJob) error {
	log.Debug().Str("inbox", job.Inbox).Msg("enqueing delivery")
	_, err := q.queues.Add(job).Save()
	return err
}

func (q *queueImpl) Firehose(ctx context.Context, job FirehoseJob) error {
	_, err := q.queues.Add(job).Save()
	return err
}
