package sectionflow_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/drillsoft/sectionflow"
	"github.com/drillsoft/sectionflow/adapters/memcache"
	"github.com/drillsoft/sectionflow/adapters/memremote"
	"github.com/drillsoft/sectionflow/internal/logger"
)

type surveyService = sectionflow.Service[sectionflow.Survey, *sectionflow.Survey]

func newSurveyService(t *testing.T) (*surveyService, *memcache.Store, *memremote.Client[sectionflow.Survey, *sectionflow.Survey]) {
	t.Helper()

	cache := memcache.New()
	remote := memremote.New[sectionflow.Survey, *sectionflow.Survey]()
	clk := testclock.NewFakeClock(time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))

	repo := sectionflow.NewRepository[sectionflow.Survey](cache, "surveys", clk)
	svc := sectionflow.NewService[sectionflow.Survey, *sectionflow.Survey](
		repo, remote, clk, logger.New(io.Discard))

	return svc, cache, remote
}

func newRemoteSurvey(planID string, depth float64) *sectionflow.Survey {
	return &sectionflow.Survey{
		EntityMeta: sectionflow.EntityMeta{
			ID:          uuid.NewString(),
			DrillPlanID: planID,
			RowStatus:   sectionflow.RowStatusComplete,
		},
		DepthM: ptr(depth),
		Method: "gyro",
	}
}

func TestListByDrillPlanPopulatesCache(t *testing.T) {
	svc, cache, remote := newSurveyService(t)
	ctx := context.Background()
	planID := uuid.NewString()

	remote.Seed(
		newRemoteSurvey(planID, 50),
		newRemoteSurvey(planID, 100),
		newRemoteSurvey(uuid.NewString(), 10),
	)

	items, err := svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, remote.FindAllCount())

	recs, err := cache.ListByDrillPlan(ctx, "surveys", planID)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// The second listing is served from the cache: no further remote call, even if the
	// remote data has moved on.
	remote.Seed(newRemoteSurvey(planID, 150))

	items, err = svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 1, remote.FindAllCount())
}

func TestListByDrillPlanDegradesToCache(t *testing.T) {
	svc, _, remote := newSurveyService(t)
	ctx := context.Background()
	planID := uuid.NewString()

	remote.Seed(newRemoteSurvey(planID, 50))

	items, err := svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// With the guard reset and the remote down, the listing falls back to the cache
	// instead of failing.
	svc.ResetFetchGuard(planID)
	remote.FindAllErr = io.ErrUnexpectedEOF

	items, err = svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 2, remote.FindAllCount())
}

func TestListByDrillPlanOfflineEmptyCache(t *testing.T) {
	svc, _, remote := newSurveyService(t)
	ctx := context.Background()

	remote.FindAllErr = io.ErrUnexpectedEOF

	items, err := svc.ListByDrillPlan(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestGetCacheAside(t *testing.T) {
	svc, cache, remote := newSurveyService(t)
	ctx := context.Background()
	planID := uuid.NewString()

	seeded := newRemoteSurvey(planID, 50)
	remote.Seed(seeded)

	got, err := svc.Get(ctx, seeded.EntityID())
	require.NoError(t, err)
	require.Equal(t, seeded.EntityID(), got.EntityID())
	require.Equal(t, 1, remote.FindOneCount())

	// The miss populated the cache, so the next read stays local.
	_, err = cache.Get(ctx, "surveys", seeded.EntityID())
	require.NoError(t, err)

	got, err = svc.Get(ctx, seeded.EntityID())
	require.NoError(t, err)
	require.Equal(t, seeded.EntityID(), got.EntityID())
	require.Equal(t, 1, remote.FindOneCount())

	_, err = svc.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, memremote.ErrNotFound)
}

func TestSaveQueuesOutbox(t *testing.T) {
	svc, cache, remote := newSurveyService(t)
	ctx := context.Background()
	planID := uuid.NewString()

	s := newRemoteSurvey(planID, 50)

	err := svc.Save(ctx, s, true)
	require.NoError(t, err)

	// The write is local only until the syncer picks up the intent.
	require.Equal(t, 0, remote.CreateCount())
	require.Equal(t, 0, remote.UpdateCount())

	events, err := cache.ListOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "surveys", events[0].Table)
	require.Equal(t, s.EntityID(), events[0].EntityID)
	require.Equal(t, planID, events[0].DrillPlanID)
	require.True(t, events[0].IsNew)

	got, err := svc.Get(ctx, s.EntityID())
	require.NoError(t, err)
	require.Equal(t, ptr(50.0), got.DepthM)
}

func TestRefresh(t *testing.T) {
	svc, _, remote := newSurveyService(t)
	ctx := context.Background()
	planID := uuid.NewString()

	remote.Seed(newRemoteSurvey(planID, 50))

	items, err := svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	remote.Seed(newRemoteSurvey(planID, 100))

	// Refresh bypasses the fetch guard and re-lists from the remote system.
	err = svc.Refresh(ctx, planID)
	require.NoError(t, err)

	items, err = svc.ListByDrillPlan(ctx, planID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, remote.FindAllCount())
}
