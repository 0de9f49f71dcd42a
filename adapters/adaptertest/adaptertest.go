package adaptertest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/require"

	"github.com/drillsoft/sectionflow"
)

// RunCacheStoreTest runs the CacheStore conformance suite against the adapter under
// test. Every adapter must pass it unmodified; the engine relies on these semantics.
func RunCacheStoreTest(t *testing.T, factory func() sectionflow.CacheStore) {
	tests := []func(t *testing.T, store sectionflow.CacheStore){
		testGet,
		testUpsert,
		testListByDrillPlan,
		testList,
		testStoreWithOutboxEvents,
		testBulkStore,
		testDelete,
		testOutboxOrderingAndLimit,
		testDeleteOutboxEvent,
	}

	for _, test := range tests {
		test(t, factory())
	}
}

func record(planID string, payload string) *sectionflow.CacheRecord {
	return &sectionflow.CacheRecord{
		ID:          uuid.NewString(),
		DrillPlanID: planID,
		Object:      []byte(payload),
		UpdatedAt:   time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	}
}

func event(table, entityID, planID string, createdAt time.Time) sectionflow.OutboxEvent {
	return sectionflow.OutboxEvent{
		ID:          uuid.NewString(),
		Table:       table,
		EntityID:    entityID,
		DrillPlanID: planID,
		RowStatus:   sectionflow.RowStatusDraft,
		Object:      []byte(`{}`),
		CreatedAt:   createdAt,
	}
}

func testGet(t *testing.T, store sectionflow.CacheStore) {
	t.Run("Get", func(t *testing.T) {
		ctx := context.Background()
		r := record(uuid.NewString(), `{"depthM":50}`)

		_, err := store.Get(ctx, "surveys", r.ID)
		jtest.Require(t, sectionflow.ErrCacheRecordNotFound, err)

		err = store.Store(ctx, "surveys", r)
		jtest.RequireNil(t, err)

		got, err := store.Get(ctx, "surveys", r.ID)
		jtest.RequireNil(t, err)
		require.Equal(t, r.ID, got.ID)
		require.Equal(t, r.DrillPlanID, got.DrillPlanID)
		require.Equal(t, r.Object, got.Object)

		// Tables are isolated even when IDs collide.
		_, err = store.Get(ctx, "samples", r.ID)
		jtest.Require(t, sectionflow.ErrCacheRecordNotFound, err)
	})
}

func testUpsert(t *testing.T, store sectionflow.CacheStore) {
	t.Run("StoreUpsertsByPrimaryKey", func(t *testing.T) {
		ctx := context.Background()
		r := record(uuid.NewString(), `{"depthM":50}`)

		err := store.Store(ctx, "surveys", r)
		jtest.RequireNil(t, err)

		r.Object = []byte(`{"depthM":55}`)
		r.UpdatedAt = r.UpdatedAt.Add(time.Minute)
		err = store.Store(ctx, "surveys", r)
		jtest.RequireNil(t, err)

		got, err := store.Get(ctx, "surveys", r.ID)
		jtest.RequireNil(t, err)
		require.Equal(t, []byte(`{"depthM":55}`), got.Object)

		recs, err := store.ListByDrillPlan(ctx, "surveys", r.DrillPlanID)
		jtest.RequireNil(t, err)
		require.Len(t, recs, 1)
	})
}

func testListByDrillPlan(t *testing.T, store sectionflow.CacheStore) {
	t.Run("ListByDrillPlan", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()

		for i := 0; i < 3; i++ {
			err := store.Store(ctx, "surveys", record(planID, `{}`))
			jtest.RequireNil(t, err)
		}
		err := store.Store(ctx, "surveys", record(uuid.NewString(), `{}`))
		jtest.RequireNil(t, err)

		recs, err := store.ListByDrillPlan(ctx, "surveys", planID)
		jtest.RequireNil(t, err)
		require.Len(t, recs, 3)

		recs, err = store.ListByDrillPlan(ctx, "surveys", uuid.NewString())
		jtest.RequireNil(t, err)
		require.Empty(t, recs)
	})
}

func testList(t *testing.T, store sectionflow.CacheStore) {
	t.Run("List", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()

		var ids []string
		for i := 0; i < 5; i++ {
			r := record(planID, `{}`)
			r.UpdatedAt = r.UpdatedAt.Add(time.Duration(i) * time.Minute)
			err := store.Store(ctx, "surveys", r)
			jtest.RequireNil(t, err)
			ids = append(ids, r.ID)
		}

		recs, count, err := store.List(ctx, "surveys", 0, 0)
		jtest.RequireNil(t, err)
		require.Equal(t, int64(5), count)
		require.Len(t, recs, 5)

		// Pages report the full filtered count.
		recs, count, err = store.List(ctx, "surveys", 2, 2)
		jtest.RequireNil(t, err)
		require.Equal(t, int64(5), count)
		require.Len(t, recs, 2)

		recs, count, err = store.List(ctx, "surveys", 0, 0, sectionflow.CacheFilter{
			Field: "id", Value: ids[3],
		})
		jtest.RequireNil(t, err)
		require.Equal(t, int64(1), count)
		require.Len(t, recs, 1)
		require.Equal(t, ids[3], recs[0].ID)

		recs, count, err = store.List(ctx, "surveys", 0, 0, sectionflow.CacheFilter{
			Field: "drillPlanId", Value: planID,
		})
		jtest.RequireNil(t, err)
		require.Equal(t, int64(5), count)
		require.Len(t, recs, 5)
	})
}

func testStoreWithOutboxEvents(t *testing.T, store sectionflow.CacheStore) {
	t.Run("StoreWithOutboxEvents", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()
		r := record(planID, `{}`)

		err := store.Store(ctx, "surveys", r,
			event("surveys", r.ID, planID, r.UpdatedAt))
		jtest.RequireNil(t, err)

		events, err := store.ListOutboxEvents(ctx, 10)
		jtest.RequireNil(t, err)
		require.Len(t, events, 1)
		require.Equal(t, "surveys", events[0].Table)
		require.Equal(t, r.ID, events[0].EntityID)
		require.Equal(t, planID, events[0].DrillPlanID)
		require.Equal(t, sectionflow.RowStatusDraft, events[0].RowStatus)
	})
}

func testBulkStore(t *testing.T, store sectionflow.CacheStore) {
	t.Run("BulkStore", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()

		rs := []sectionflow.CacheRecord{
			*record(planID, `{}`),
			*record(planID, `{}`),
		}
		err := store.BulkStore(ctx, "surveys", rs)
		jtest.RequireNil(t, err)

		recs, err := store.ListByDrillPlan(ctx, "surveys", planID)
		jtest.RequireNil(t, err)
		require.Len(t, recs, 2)

		// Bulk population never queues sync intents.
		events, err := store.ListOutboxEvents(ctx, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, events)
	})
}

func testDelete(t *testing.T, store sectionflow.CacheStore) {
	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		r := record(uuid.NewString(), `{}`)

		err := store.Store(ctx, "surveys", r)
		jtest.RequireNil(t, err)

		err = store.Delete(ctx, "surveys", r.ID)
		jtest.RequireNil(t, err)

		_, err = store.Get(ctx, "surveys", r.ID)
		jtest.Require(t, sectionflow.ErrCacheRecordNotFound, err)

		err = store.Delete(ctx, "surveys", r.ID)
		jtest.Require(t, sectionflow.ErrCacheRecordNotFound, err)
	})
}

func testOutboxOrderingAndLimit(t *testing.T, store sectionflow.CacheStore) {
	t.Run("OutboxOrderingAndLimit", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()
		base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

		// Stored newest first to prove listing orders by creation time.
		var entityIDs []string
		for i := 2; i >= 0; i-- {
			r := record(planID, `{}`)
			err := store.Store(ctx, "surveys", r,
				event("surveys", r.ID, planID, base.Add(time.Duration(i)*time.Minute)))
			jtest.RequireNil(t, err)
			entityIDs = append(entityIDs, r.ID)
		}

		events, err := store.ListOutboxEvents(ctx, 10)
		jtest.RequireNil(t, err)
		require.Len(t, events, 3)
		require.Equal(t, entityIDs[2], events[0].EntityID)
		require.Equal(t, entityIDs[1], events[1].EntityID)
		require.Equal(t, entityIDs[0], events[2].EntityID)

		events, err = store.ListOutboxEvents(ctx, 2)
		jtest.RequireNil(t, err)
		require.Len(t, events, 2)
		require.Equal(t, entityIDs[2], events[0].EntityID)
	})
}

func testDeleteOutboxEvent(t *testing.T, store sectionflow.CacheStore) {
	t.Run("DeleteOutboxEvent", func(t *testing.T) {
		ctx := context.Background()
		planID := uuid.NewString()
		r := record(planID, `{}`)

		err := store.Store(ctx, "surveys", r,
			event("surveys", r.ID, planID, r.UpdatedAt))
		jtest.RequireNil(t, err)

		events, err := store.ListOutboxEvents(ctx, 10)
		jtest.RequireNil(t, err)
		require.Len(t, events, 1)

		err = store.DeleteOutboxEvent(ctx, events[0].ID)
		jtest.RequireNil(t, err)

		events, err = store.ListOutboxEvents(ctx, 10)
		jtest.RequireNil(t, err)
		require.Empty(t, events)

		err = store.DeleteOutboxEvent(ctx, uuid.NewString())
		jtest.Require(t, sectionflow.ErrOutboxEventNotFound, err)
	})
}
