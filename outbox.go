package sectionflow

import (
	"time"
)

// OutboxEvent is one pending remote sync intent. Events are written atomically with the
// cache record they describe and deleted once the remote system has accepted the change,
// so the local cache remains the durable record of intent in between.
type OutboxEvent struct {
	ID          string
	Table       string
	EntityID    string
	DrillPlanID string
	RowStatus   RowStatus
	// Object is the marshalled entity at the time of the local write.
	Object []byte
	// IsNew selects remote create over update.
	IsNew     bool
	CreatedAt time.Time
}
