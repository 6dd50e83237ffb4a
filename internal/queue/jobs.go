package queue

import (
	"encoding/json"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sidereusnuntius/courier/internal/domain"
)

const (
	FanoutQueue   = "RemoteFanout"
	DeliverQueue  = "Deliver"
	FirehoseQueue = "Firehose"
)

var retention = &backlite.Retention{
	Duration:   12 * time.Hour,
	OnlyFailed: false,
	Data: &backlite.RetainData{
		OnlyFailed: true,
	},
}

// FanoutJob expands an activity's remote audience and schedules one delivery
// per resolved inbox.
type FanoutJob struct {
	ActivityID string
	// Actor is the posting actor's id; remote collection fetches are made on
	// its behalf.
	Actor string
	// Activity is the delivered copy, blind audience fields already stripped.
	Activity json.RawMessage
	// Recipients are the deduplicated remote persons and unexpanded remote
	// collections of the audience.
	Recipients []domain.Recipient
}

func (j FanoutJob) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        FanoutQueue,
		MaxAttempts: 1,
		Timeout:     60 * time.Second,
		Retention:   retention,
	}
}

// DeliverJob is one signed POST to one remote inbox. Targets are isolated:
// each runs as its own task and no retry is scheduled here.
type DeliverJob struct {
	Host     string
	Inbox    string
	Activity json.RawMessage
}

func (j DeliverJob) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        DeliverQueue,
		MaxAttempts: 1,
		Timeout:     30 * time.Second,
		Retention:   retention,
	}
}

// FirehoseJob pings the configured firehose endpoint about one publicly
// addressed activity.
type FirehoseJob struct {
	URL      string
	Activity json.RawMessage
}

func (j FirehoseJob) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        FirehoseQueue,
		MaxAttempts: 1,
		Timeout:     30 * time.Second,
		Retention:   retention,
	}
}
