// Package slotstore implements the inventory claim engine: a pool of slots
// in AVAILABLE/RESERVED/CONSUMED states, claimed with FOR UPDATE SKIP LOCKED
// so concurrent claimants never block on each other.
package slotstore

import "time"

// Status is the lifecycle state of a single slot.
type Status string

const (
	Available Status = "AVAILABLE"
	Reserved  Status = "RESERVED"
	Consumed  Status = "CONSUMED"
)

// Slot is one unit of inventory in a pool.
type Slot struct {
	ID       string
	PoolID   string
	Status   Status
	LockedBy *string
	LockedAt *time.Time
}

// Counts summarizes a pool's slot distribution, used by the snapshot job
// and by tests.
type Counts struct {
	Available int
	Reserved  int
	Consumed  int
}

func (c Counts) Total() int {
	return c.Available + c.Reserved + c.Consumed
}
