// Package realtime fans out a CloudEvents-shaped confirmation the moment
// the Bridge worker commits a resource, over a durable Pub/Sub topic and
// an in-process WebSocket hub for immediate push, adapted from the
// teacher's event bus (internal/events/bus.go, pubsub_bus.go).
package realtime

import (
	"context"
	"time"
)

// CommittedEvent is the domain fact published after a successful ledger
// commit, once mark_consumed has been attempted (a failed mark_consumed
// does not suppress it).
type CommittedEvent struct {
	PoolID     string
	ResourceID string
	UserID     string
	At         time.Time
}

// CloudEvent is the CloudEvents 1.0 envelope used on the wire, matching
// the "intake.resource.committed" type named in SPEC_FULL.md's
// supplemented features.
type CloudEvent struct {
	SpecVersion string         `json:"specversion"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	ID          string         `json:"id"`
	Time        time.Time      `json:"time"`
	Data        CommittedEvent `json:"data"`
}

const eventType = "intake.resource.committed"
const eventSource = "ledger-intake/bridge"

func toCloudEvent(id string, e CommittedEvent) CloudEvent {
	return CloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      eventSource,
		ID:          id,
		Time:        e.At,
		Data:        e,
	}
}

// Publisher is what the Bridge worker depends on, narrow enough to stub
// out in tests without a live Pub/Sub or WebSocket hub.
type Publisher interface {
	PublishCommitted(ctx context.Context, e CommittedEvent) error
}
