package sectionflow

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/utils/clock"
)

// Engine owns the section wiring for one deployment: the validator, the local cache,
// the per-section cache-aside services, and the background sync processes. Drill holes
// are opened from it for editing.
type Engine struct {
	name      string
	clock     clock.Clock
	logger    Logger
	validator *Validator
	cache     CacheStore
	notifier  ChangeNotifier

	sections map[SectionKey]*sectionRuntime
	byTable  map[string]*sectionRuntime
	order    []SectionKey

	summaryBind func(e *Engine) *Service[CollarSummary, *CollarSummary]
	summarySvc  *Service[CollarSummary, *CollarSummary]

	syncOpts        syncOptions
	refreshSchedule cron.Schedule

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup

	// openPlans tracks every drill plan opened for editing so the scheduled refresh
	// knows which plans to re-list.
	plansMu   sync.Mutex
	openPlans map[string]bool
}

type syncOptions struct {
	pollingFrequency time.Duration
	errBackOff       time.Duration
	limit            int64
}

func (e *Engine) Name() string {
	return e.name
}

// OpenDrillHole loads every registered section for the drill plan, through the cache
// with remote fallback, and returns the live editing aggregate. The aggregate is cheap
// to discard; nothing is lost that is not already in the cache or remote.
func (e *Engine) OpenDrillHole(ctx context.Context, drillPlanID string) (*DrillHole, error) {
	h := &DrillHole{
		engine:      e,
		drillPlanID: drillPlanID,
		sections:    make(map[SectionKey]*Section, len(e.order)),
		order:       e.order,
	}

	for _, key := range e.order {
		rt := e.sections[key]

		rows, err := rt.svc.loadRows(ctx, drillPlanID)
		if err != nil {
			return nil, err
		}

		s := newSection(key, rt.cardinality)
		err = s.replaceRows(rows)
		if err != nil {
			return nil, err
		}

		h.sections[key] = s
	}

	if e.summarySvc != nil {
		summaries, err := e.summarySvc.ListByDrillPlan(ctx, drillPlanID)
		if err != nil {
			return nil, err
		}

		if len(summaries) > 0 {
			h.summary = summaries[0]
		}
	}

	e.plansMu.Lock()
	e.openPlans[drillPlanID] = true
	e.plansMu.Unlock()

	return h, nil
}

// Run starts the background sync processes. Subsequent calls are safe no-ops.
func (e *Engine) Run(ctx context.Context) {
	e.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		e.ctx = ctx
		e.cancel = cancel

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.syncForever(ctx)
		}()

		if e.refreshSchedule != nil {
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.refreshForever(ctx)
			}()
		}
	})
}

// Stop cancels the background processes and waits for them to shut down gracefully.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) openPlanIDs() []string {
	e.plansMu.Lock()
	defer e.plansMu.Unlock()

	plans := make([]string, 0, len(e.openPlans))
	for id := range e.openPlans {
		plans = append(plans, id)
	}

	return plans
}
