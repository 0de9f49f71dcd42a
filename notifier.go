package sectionflow

import (
	"context"
	"time"
)

// ChangeEvent describes one entity change that reached the remote system of record.
type ChangeEvent struct {
	Table       string    `json:"table"`
	EntityID    string    `json:"entityId"`
	DrillPlanID string    `json:"drillPlanId"`
	RowStatus   RowStatus `json:"rowStatus"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ChangeNotifier receives change events after the syncer has successfully pushed them
// remotely. Notification failures are logged, never retried, and never fail the sync.
type ChangeNotifier interface {
	Notify(ctx context.Context, ev ChangeEvent) error
}
