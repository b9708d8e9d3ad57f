// Package intakequeue is the persistent intake queue: visibility-timeout
// leasing over a batched, skip-locked dequeue, with a manual dead-letter
// path for messages that exhaust their retry budget.
package intakequeue

import "time"

// MessageState mirrors the lifecycle a queued claim goes through as the
// Bridge worker drains it.
type MessageState string

const (
	Queued    MessageState = "QUEUED"
	Validated MessageState = "VALIDATED"
	Committed MessageState = "COMMITTED"
)

// Payload is the application data carried by an intake message.
type Payload struct {
	PoolID     string
	ResourceID string
	UserID     string
	State      MessageState
}

// Envelope wraps a Payload with queue bookkeeping.
type Envelope struct {
	MsgID      int64
	ReadCount  int
	EnqueuedAt time.Time
	VisibleAt  time.Time
	Payload    Payload
}

// DLQEnvelope is a message that exhausted its retry budget or was found
// malformed, routed to the dead-letter queue for operator review.
type DLQEnvelope struct {
	OriginalMsgID  int64
	Payload        Payload
	FinalReadCount int
	RoutedToDLQAt  time.Time
	Reason         string
}
