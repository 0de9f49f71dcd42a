package sectionflow

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"k8s.io/utils/clock"

	"github.com/drillsoft/sectionflow/internal/logger"
)

const (
	defaultSyncPollingFrequency = 250 * time.Millisecond
	defaultSyncErrBackOff       = 500 * time.Millisecond
	defaultSyncLookupLimit      = 1000
)

// NewBuilder starts the wiring of a section workflow engine. Sections are registered
// with RegisterSection and the engine is assembled with Build.
func NewBuilder(name string) *Builder {
	return &Builder{
		engine: &Engine{
			name:      name,
			clock:     clock.RealClock{},
			validator: NewValidator(),
			sections:  make(map[SectionKey]*sectionRuntime),
			byTable:   make(map[string]*sectionRuntime),
			openPlans: make(map[string]bool),
			syncOpts: syncOptions{
				pollingFrequency: defaultSyncPollingFrequency,
				errBackOff:       defaultSyncErrBackOff,
				limit:            defaultSyncLookupLimit,
			},
		},
	}
}

type Builder struct {
	engine *Engine
}

// sectionRuntime is the engine-side wiring of one registered section kind.
type sectionRuntime struct {
	key         SectionKey
	cardinality Cardinality
	table       string
	rules       []BusinessRule
	svc         sectionService
	newRow      func(drillPlanID string) Entity

	bind func(e *Engine) sectionService
}

// metaInit is satisfied by entities embedding EntityMeta; it lets the engine stamp
// identity onto freshly allocated rows. The set of section entity types is closed so
// this stays inside the package.
type metaInit interface {
	initMeta(id, drillPlanID string)
}

func (m *EntityMeta) initMeta(id, drillPlanID string) {
	m.ID = id
	m.DrillPlanID = drillPlanID
	m.RowStatus = RowStatusDraft
}

// RegisterSection adds one section kind to the engine being built: its cache table, its
// remote collaborator, and its business rules. Registering the same key twice panics as
// the section set is a closed lookup table.
func RegisterSection[Type any, P Ptr[Type]](
	b *Builder,
	key SectionKey,
	cardinality Cardinality,
	table string,
	remote RemoteClient[Type],
	rules ...BusinessRule,
) {
	if _, ok := b.engine.sections[key]; ok {
		panic("section keys need to be unique")
	}

	rt := &sectionRuntime{
		key:         key,
		cardinality: cardinality,
		table:       table,
		rules:       rules,
		newRow: func(drillPlanID string) Entity {
			var t Type
			p := P(&t)
			if mi, ok := any(p).(metaInit); ok {
				mi.initMeta(uuid.NewString(), drillPlanID)
			}

			return p
		},
		bind: func(e *Engine) sectionService {
			repo := NewRepository[Type](e.cache, table, e.clock)
			return NewService[Type, P](repo, remote, e.clock, e.logger)
		},
	}

	b.engine.sections[key] = rt
	b.engine.order = append(b.engine.order, key)
}

// RegisterSummary wires the read-only collar summary projection used for sign-off
// display. It is cached like any section but never written through the workflow.
func (b *Builder) RegisterSummary(table string, remote RemoteClient[CollarSummary]) {
	b.engine.summaryBind = func(e *Engine) *Service[CollarSummary, *CollarSummary] {
		repo := NewRepository[CollarSummary](e.cache, table, e.clock)
		return NewService[CollarSummary, *CollarSummary](repo, remote, e.clock, e.logger)
	}
}

// Build assembles the engine around the provided local cache store. The returned engine
// is not yet running; call Run to start the background sync.
func (b *Builder) Build(cache CacheStore, opts ...BuildOption) *Engine {
	e := b.engine
	e.cache = cache

	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	if bo.clock != nil {
		e.clock = bo.clock
	}

	e.logger = bo.logger
	if e.logger == nil {
		e.logger = logger.New(os.Stdout)
	}

	e.notifier = bo.notifier

	if bo.syncPollingFrequency > 0 {
		e.syncOpts.pollingFrequency = bo.syncPollingFrequency
	}
	if bo.syncErrBackOff > 0 {
		e.syncOpts.errBackOff = bo.syncErrBackOff
	}
	if bo.syncLookupLimit > 0 {
		e.syncOpts.limit = bo.syncLookupLimit
	}

	if bo.refreshSpec != "" {
		schedule, err := cron.ParseStandard(bo.refreshSpec)
		if err != nil {
			panic("invalid refresh schedule: " + err.Error())
		}

		e.refreshSchedule = schedule
	}

	for _, key := range e.order {
		rt := e.sections[key]
		rt.svc = rt.bind(e)
		e.byTable[rt.table] = rt
	}

	if e.summaryBind != nil {
		e.summarySvc = e.summaryBind(e)
	}

	return e
}

type buildOptions struct {
	clock                clock.Clock
	logger               Logger
	notifier             ChangeNotifier
	syncPollingFrequency time.Duration
	syncErrBackOff       time.Duration
	syncLookupLimit      int64
	refreshSpec          string
}

type BuildOption func(bo *buildOptions)

func WithClock(c clock.Clock) BuildOption {
	return func(bo *buildOptions) {
		bo.clock = c
	}
}

func WithLogger(l Logger) BuildOption {
	return func(bo *buildOptions) {
		bo.logger = l
	}
}

// WithNotifier publishes change events downstream once the remote system has accepted
// them.
func WithNotifier(n ChangeNotifier) BuildOption {
	return func(bo *buildOptions) {
		bo.notifier = n
	}
}

// WithSyncPollingFrequency defines how often the syncer polls the outbox for pending
// remote writes.
func WithSyncPollingFrequency(d time.Duration) BuildOption {
	return func(bo *buildOptions) {
		bo.syncPollingFrequency = d
	}
}

// WithSyncErrBackOff defines the back off after a failed remote push before the outbox
// is retried.
func WithSyncErrBackOff(d time.Duration) BuildOption {
	return func(bo *buildOptions) {
		bo.syncErrBackOff = d
	}
}

// WithSyncLookupLimit caps how many outbox events are listed per poll.
func WithSyncLookupLimit(limit int64) BuildOption {
	return func(bo *buildOptions) {
		bo.syncLookupLimit = limit
	}
}

// WithRefreshSchedule enables a periodic full refresh of every open drill plan's cached
// sections from the remote system, on a standard cron spec.
func WithRefreshSchedule(spec string) BuildOption {
	return func(bo *buildOptions) {
		bo.refreshSpec = spec
	}
}
