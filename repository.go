package sectionflow

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// CacheRecord is the serialisable row held by the local cache, one logical table per
// entity type and one row per GUID.
type CacheRecord struct {
	ID          string
	DrillPlanID string
	Object      []byte
	UpdatedAt   time.Time
}

// CacheFilter narrows a List call to rows whose indexed field matches the value.
type CacheFilter struct {
	Field string
	Value string
}

// CacheStore is the embedded document store boundary. Implementations must upsert by
// primary key (last writer wins) and must persist the record and any outbox events in
// a single atomic call so a local write can never succeed without its sync intent.
//
// Implementations should all be tested with the shared adapter test helpers; schema
// migration must be additive and safe to re-run.
type CacheStore interface {
	Get(ctx context.Context, table, id string) (*CacheRecord, error)
	ListByDrillPlan(ctx context.Context, table, drillPlanID string) ([]CacheRecord, error)

	// List provides a page of rows plus the total row count for the table after
	// filtering.
	List(ctx context.Context, table string, offset, limit int, filters ...CacheFilter) ([]CacheRecord, int64, error)

	// Store upserts the record and appends the provided outbox events atomically.
	Store(ctx context.Context, table string, r *CacheRecord, events ...OutboxEvent) error

	// BulkStore upserts many records without outbox events. It is the population path
	// for data fetched from the remote system, which already holds it.
	BulkStore(ctx context.Context, table string, rs []CacheRecord) error

	Delete(ctx context.Context, table, id string) error

	// ListOutboxEvents returns pending sync intents oldest first.
	ListOutboxEvents(ctx context.Context, limit int64) ([]OutboxEvent, error)
	DeleteOutboxEvent(ctx context.Context, id string) error
}

// Repository provides typed CRUD over one cache table. Each call is independent; there
// is no transaction spanning repository calls.
type Repository[Type any] struct {
	store CacheStore
	table string
	clock clock.Clock
}

func NewRepository[Type any](store CacheStore, table string, clock clock.Clock) *Repository[Type] {
	return &Repository[Type]{
		store: store,
		table: table,
		clock: clock,
	}
}

func (r *Repository[Type]) Table() string {
	return r.table
}

func (r *Repository[Type]) GetByID(ctx context.Context, id string) (*Type, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}

	var t Type
	err = Unmarshal(rec.Object, &t)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *Repository[Type]) ListByDrillPlan(ctx context.Context, drillPlanID string) ([]*Type, error) {
	recs, err := r.store.ListByDrillPlan(ctx, r.table, drillPlanID)
	if err != nil {
		return nil, err
	}

	return decodeRecords[Type](recs)
}

func (r *Repository[Type]) List(ctx context.Context, offset, limit int, filters ...CacheFilter) ([]*Type, int64, error) {
	recs, count, err := r.store.List(ctx, r.table, offset, limit, filters...)
	if err != nil {
		return nil, 0, err
	}

	items, err := decodeRecords[Type](recs)
	if err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

// Save upserts one row, stamping the cache-level modification time, and atomically
// appends any outbox events carrying the remote sync intent.
func (r *Repository[Type]) Save(ctx context.Context, id, drillPlanID string, t *Type, events ...OutboxEvent) error {
	object, err := Marshal(t)
	if err != nil {
		return err
	}

	return r.store.Store(ctx, r.table, &CacheRecord{
		ID:          id,
		DrillPlanID: drillPlanID,
		Object:      object,
		UpdatedAt:   r.clock.Now(),
	}, events...)
}

func (r *Repository[Type]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.table, id)
}

// BulkCreate writes rows fetched from the remote system into the cache without queueing
// sync events.
func (r *Repository[Type]) BulkCreate(ctx context.Context, items map[string]*Type, drillPlanID string) error {
	recs := make([]CacheRecord, 0, len(items))
	now := r.clock.Now()
	for id, t := range items {
		object, err := Marshal(t)
		if err != nil {
			return err
		}

		recs = append(recs, CacheRecord{
			ID:          id,
			DrillPlanID: drillPlanID,
			Object:      object,
			UpdatedAt:   now,
		})
	}

	return r.store.BulkStore(ctx, r.table, recs)
}

func decodeRecords[Type any](recs []CacheRecord) ([]*Type, error) {
	items := make([]*Type, 0, len(recs))
	for _, rec := range recs {
		var t Type
		err := Unmarshal(rec.Object, &t)
		if err != nil {
			return nil, err
		}

		items = append(items, &t)
	}

	return items, nil
}
