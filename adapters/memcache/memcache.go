package memcache

import (
	"context"
	"sort"
	"sync"

	"k8s.io/utils/clock"

	"github.com/drillsoft/sectionflow"
)

// New constructs an in-memory CacheStore. It mirrors the semantics the engine expects
// of the embedded store: upserts by primary key and the record plus its outbox events
// landing in one atomic call.
func New(opts ...Option) *Store {
	opt := options{
		clock: clock.RealClock{},
	}

	for _, o := range opts {
		o(&opt)
	}

	return &Store{
		tables: make(map[string]map[string]*sectionflow.CacheRecord),
		order:  make(map[string][]string),
		clock:  opt.clock,
	}
}

type options struct {
	clock clock.Clock
}

type Option func(o *options)

// WithClock overrides the real clock, for tests.
func WithClock(clock clock.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

var _ sectionflow.CacheStore = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	clock  clock.Clock
	tables map[string]map[string]*sectionflow.CacheRecord
	order  map[string][]string
	outbox []sectionflow.OutboxEvent
}

func (s *Store) Get(ctx context.Context, table, id string) (*sectionflow.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tables[table][id]
	if !ok {
		return nil, sectionflow.ErrCacheRecordNotFound
	}

	return copyRecord(rec), nil
}

func (s *Store) ListByDrillPlan(ctx context.Context, table, drillPlanID string) ([]sectionflow.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []sectionflow.CacheRecord
	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		if rec.DrillPlanID == drillPlanID {
			out = append(out, *copyRecord(rec))
		}
	}

	return out, nil
}

func (s *Store) List(ctx context.Context, table string, offset, limit int, filters ...sectionflow.CacheFilter) ([]sectionflow.CacheRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []sectionflow.CacheRecord
	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		if matchesFilters(rec, filters) {
			matched = append(matched, *copyRecord(rec))
		}
	}

	count := int64(len(matched))
	if offset >= len(matched) {
		return nil, count, nil
	}

	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, count, nil
}

func matchesFilters(rec *sectionflow.CacheRecord, filters []sectionflow.CacheFilter) bool {
	for _, f := range filters {
		switch f.Field {
		case "id":
			if rec.ID != f.Value {
				return false
			}
		case "drillPlanId":
			if rec.DrillPlanID != f.Value {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func (s *Store) Store(ctx context.Context, table string, r *sectionflow.CacheRecord, events ...sectionflow.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(table, r)
	s.outbox = append(s.outbox, events...)

	return nil
}

func (s *Store) BulkStore(ctx context.Context, table string, rs []sectionflow.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range rs {
		s.put(table, &rs[i])
	}

	return nil
}

func (s *Store) put(table string, r *sectionflow.CacheRecord) {
	if s.tables[table] == nil {
		s.tables[table] = make(map[string]*sectionflow.CacheRecord)
	}

	if _, exists := s.tables[table][r.ID]; !exists {
		s.order[table] = append(s.order[table], r.ID)
	}

	rec := copyRecord(r)
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.clock.Now()
	}

	s.tables[table][r.ID] = rec
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table][id]; !ok {
		return sectionflow.ErrCacheRecordNotFound
	}

	delete(s.tables[table], id)
	ids := s.order[table]
	for i, existing := range ids {
		if existing == id {
			s.order[table] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	return nil
}

func (s *Store) ListOutboxEvents(ctx context.Context, limit int64) ([]sectionflow.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]sectionflow.OutboxEvent, len(s.outbox))
	copy(events, s.outbox)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	if limit > 0 && int64(len(events)) > limit {
		events = events[:limit]
	}

	return events, nil
}

func (s *Store) DeleteOutboxEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, ev := range s.outbox {
		if ev.ID == id {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			return nil
		}
	}

	return sectionflow.ErrOutboxEventNotFound
}

func copyRecord(r *sectionflow.CacheRecord) *sectionflow.CacheRecord {
	object := make([]byte, len(r.Object))
	copy(object, r.Object)

	return &sectionflow.CacheRecord{
		ID:          r.ID,
		DrillPlanID: r.DrillPlanID,
		Object:      object,
		UpdatedAt:   r.UpdatedAt,
	}
}
