package sectionflow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/drillsoft/sectionflow/internal/metrics"
)

// sectionService is the type-erased view of a Service that the drill hole aggregate and
// the background syncer operate through.
type sectionService interface {
	table() string
	loadRows(ctx context.Context, drillPlanID string) ([]Entity, error)
	saveEntity(ctx context.Context, e Entity, isNew bool) error
	pushRemote(ctx context.Context, ev OutboxEvent) error
	refresh(ctx context.Context, drillPlanID string) error
}

// Service implements the cache-aside policy for one entity type.
//
// Reads check the local cache first and fall back to the remote system, populating the
// cache best-effort on the way back. Writes land in the local cache together with an
// outbox event; the remote sync is asynchronous and its failure never rolls the local
// write back.
type Service[Type any, P Ptr[Type]] struct {
	repo   *Repository[Type]
	remote RemoteClient[Type]
	clock  clock.Clock
	logger Logger

	// fetchedPlans guards the remote listing per drill plan so that a listing that
	// succeeded once is afterwards served from the cache. It is instance state and can
	// be reset explicitly, it is not a process-wide flag.
	mu           sync.Mutex
	fetchedPlans map[string]bool
}

func NewService[Type any, P Ptr[Type]](
	repo *Repository[Type],
	remote RemoteClient[Type],
	clock clock.Clock,
	logger Logger,
) *Service[Type, P] {
	return &Service[Type, P]{
		repo:         repo,
		remote:       remote,
		clock:        clock,
		logger:       logger,
		fetchedPlans: make(map[string]bool),
	}
}

// Get returns the entity by GUID: from the cache when present, otherwise from the remote
// system with a best-effort cache populate that does not block the return value.
func (s *Service[Type, P]) Get(ctx context.Context, id string) (P, error) {
	cached, err := s.repo.GetByID(ctx, id)
	if err == nil {
		metrics.CacheHits.WithLabelValues(s.repo.Table()).Inc()
		return cached, nil
	} else if !errors.Is(err, ErrCacheRecordNotFound) {
		return nil, err
	}

	metrics.CacheMisses.WithLabelValues(s.repo.Table()).Inc()

	fetched, err := s.remote.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	p := P(fetched)
	err = s.repo.BulkCreate(ctx, map[string]*Type{id: fetched}, p.PlanID())
	if err != nil {
		s.logger.Error(ctx, errors.Wrap(err, "populating cache after remote fetch", j.MKV{
			"table": s.repo.Table(),
			"id":    id,
		}))
	}

	return p, nil
}

// ListByDrillPlan returns every row of the entity's section for one drill plan. The
// first call per plan lists from the remote system and populates the cache; later calls
// are served from the cache. When the remote system is unavailable the call degrades to
// whatever the cache holds instead of failing outright.
func (s *Service[Type, P]) ListByDrillPlan(ctx context.Context, drillPlanID string) ([]P, error) {
	s.mu.Lock()
	fetched := s.fetchedPlans[drillPlanID]
	s.mu.Unlock()

	if fetched {
		metrics.CacheHits.WithLabelValues(s.repo.Table()).Inc()
		return s.listCached(ctx, drillPlanID)
	}

	metrics.CacheMisses.WithLabelValues(s.repo.Table()).Inc()

	res, err := s.remote.FindAll(ctx, Filters{"drillPlanId": drillPlanID}, Pagination{})
	if err != nil {
		s.logger.Debug(ctx, "remote listing unavailable, degrading to cache", MKV{
			"table":         s.repo.Table(),
			"drill_plan_id": drillPlanID,
			"error":         err.Error(),
		})

		return s.listCached(ctx, drillPlanID)
	}

	items := make(map[string]*Type, len(res.Items))
	for _, item := range res.Items {
		items[P(item).EntityID()] = item
	}

	err = s.repo.BulkCreate(ctx, items, drillPlanID)
	if err != nil {
		s.logger.Error(ctx, errors.Wrap(err, "populating cache after remote listing", j.MKV{
			"table":         s.repo.Table(),
			"drill_plan_id": drillPlanID,
		}))
	} else {
		s.mu.Lock()
		s.fetchedPlans[drillPlanID] = true
		s.mu.Unlock()
	}

	out := make([]P, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item)
	}

	return out, nil
}

// Save writes the entity to the local cache, stamping the last-modified time, and queues
// the remote sync intent in the same atomic store call. The local write succeeding is
// what makes the save successful; remote propagation follows asynchronously.
func (s *Service[Type, P]) Save(ctx context.Context, p P, isNew bool) error {
	now := s.clock.Now()
	p.Touch(now)

	object, err := Marshal((*Type)(p))
	if err != nil {
		return err
	}

	ev := OutboxEvent{
		ID:          uuid.NewString(),
		Table:       s.repo.Table(),
		EntityID:    p.EntityID(),
		DrillPlanID: p.PlanID(),
		RowStatus:   p.Status(),
		Object:      object,
		IsNew:       isNew,
		CreatedAt:   now,
	}

	return s.repo.Save(ctx, p.EntityID(), p.PlanID(), (*Type)(p), ev)
}

// Refresh forces a remote listing for the plan and repopulates the cache, resetting the
// per-plan fetch guard first so the listing is not served from cache.
func (s *Service[Type, P]) Refresh(ctx context.Context, drillPlanID string) error {
	s.ResetFetchGuard(drillPlanID)

	res, err := s.remote.FindAll(ctx, Filters{"drillPlanId": drillPlanID}, Pagination{})
	if err != nil {
		return err
	}

	items := make(map[string]*Type, len(res.Items))
	for _, item := range res.Items {
		items[P(item).EntityID()] = item
	}

	err = s.repo.BulkCreate(ctx, items, drillPlanID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.fetchedPlans[drillPlanID] = true
	s.mu.Unlock()

	return nil
}

// ResetFetchGuard clears the remote-listing guard for one plan, forcing the next
// ListByDrillPlan to go to the remote system.
func (s *Service[Type, P]) ResetFetchGuard(drillPlanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fetchedPlans, drillPlanID)
}

func (s *Service[Type, P]) listCached(ctx context.Context, drillPlanID string) ([]P, error) {
	items, err := s.repo.ListByDrillPlan(ctx, drillPlanID)
	if err != nil {
		return nil, err
	}

	out := make([]P, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}

	return out, nil
}

// sectionService implementation, used by the aggregate and the syncer.

func (s *Service[Type, P]) table() string {
	return s.repo.Table()
}

func (s *Service[Type, P]) loadRows(ctx context.Context, drillPlanID string) ([]Entity, error) {
	items, err := s.ListByDrillPlan(ctx, drillPlanID)
	if err != nil {
		return nil, err
	}

	rows := make([]Entity, 0, len(items))
	for _, item := range items {
		e := Entity(item)
		if !e.Status().Known() {
			e.SetStatus(ToRowStatus(ctx, int(e.Status()), s.logger))
		}

		rows = append(rows, e)
	}

	return rows, nil
}

func (s *Service[Type, P]) saveEntity(ctx context.Context, e Entity, isNew bool) error {
	p, ok := e.(P)
	if !ok {
		return errors.New("entity type does not belong to this section", j.MKV{
			"table": s.repo.Table(),
		})
	}

	return s.Save(ctx, p, isNew)
}

func (s *Service[Type, P]) pushRemote(ctx context.Context, ev OutboxEvent) error {
	var t Type
	err := Unmarshal(ev.Object, &t)
	if err != nil {
		return errors.Wrap(err, "unmarshalling outbox payload", j.MKV{
			"table":    ev.Table,
			"event_id": ev.ID,
		})
	}

	if ev.IsNew {
		_, err = s.remote.Create(ctx, &t)
	} else {
		_, err = s.remote.Update(ctx, &t)
	}

	return err
}

func (s *Service[Type, P]) refresh(ctx context.Context, drillPlanID string) error {
	return s.Refresh(ctx, drillPlanID)
}
