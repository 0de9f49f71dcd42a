package sectionflow_test

import (
	"testing"
	"time"

	testclock "k8s.io/utils/clock/testing"

	"github.com/drillsoft/sectionflow"
	"github.com/drillsoft/sectionflow/adapters/memcache"
	"github.com/drillsoft/sectionflow/adapters/memnotify"
	"github.com/drillsoft/sectionflow/adapters/memremote"
)

// fixture wires a full engine over the in-memory adapters: the four built-in sections,
// the collar summary, a fake clock, and a collecting notifier.
type fixture struct {
	engine   *sectionflow.Engine
	cache    *memcache.Store
	clock    *testclock.FakeClock
	notifier *memnotify.Notifier

	rigs      *memremote.Client[sectionflow.RigSetup, *sectionflow.RigSetup]
	surveys   *memremote.Client[sectionflow.Survey, *sectionflow.Survey]
	geology   *memremote.Client[sectionflow.GeologyInterval, *sectionflow.GeologyInterval]
	samples   *memremote.Client[sectionflow.Sample, *sectionflow.Sample]
	summaries *memremote.Client[sectionflow.CollarSummary, *sectionflow.CollarSummary]
}

func newFixture(t *testing.T, opts ...sectionflow.BuildOption) *fixture {
	t.Helper()

	f := &fixture{
		cache:     memcache.New(),
		clock:     testclock.NewFakeClock(time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)),
		notifier:  memnotify.New(),
		rigs:      memremote.New[sectionflow.RigSetup, *sectionflow.RigSetup](),
		surveys:   memremote.New[sectionflow.Survey, *sectionflow.Survey](),
		geology:   memremote.New[sectionflow.GeologyInterval, *sectionflow.GeologyInterval](),
		samples:   memremote.New[sectionflow.Sample, *sectionflow.Sample](),
		summaries: memremote.New[sectionflow.CollarSummary, *sectionflow.CollarSummary](),
	}

	b := sectionflow.NewBuilder("sectionflow-test")
	sectionflow.RegisterSection[sectionflow.RigSetup](b,
		sectionflow.SectionRigSetup, sectionflow.CardinalitySingle, "rig_setups",
		f.rigs, sectionflow.RigSetupRules()...)
	sectionflow.RegisterSection[sectionflow.Survey](b,
		sectionflow.SectionSurvey, sectionflow.CardinalityMulti, "surveys",
		f.surveys, sectionflow.SurveyRules()...)
	sectionflow.RegisterSection[sectionflow.GeologyInterval](b,
		sectionflow.SectionGeology, sectionflow.CardinalityMulti, "geology_intervals",
		f.geology, sectionflow.GeologyRules()...)
	sectionflow.RegisterSection[sectionflow.Sample](b,
		sectionflow.SectionSamples, sectionflow.CardinalityMulti, "samples",
		f.samples, sectionflow.SampleRules()...)
	b.RegisterSummary("collar_summaries", f.summaries)

	f.engine = b.Build(f.cache, append([]sectionflow.BuildOption{
		sectionflow.WithClock(f.clock),
		sectionflow.WithNotifier(f.notifier),
		sectionflow.WithSyncPollingFrequency(time.Millisecond * 5),
		sectionflow.WithSyncErrBackOff(time.Millisecond * 5),
	}, opts...)...)

	return f
}

// seedSurvey installs one survey row in the remote system at the given status.
func seedSurvey(f *fixture, id, planID string, depth float64, status sectionflow.RowStatus) *sectionflow.Survey {
	s := &sectionflow.Survey{
		EntityMeta: sectionflow.EntityMeta{
			ID:          id,
			DrillPlanID: planID,
			RowStatus:   status,
		},
		DepthM:     ptr(depth),
		AzimuthDeg: ptr(45.0),
		DipDeg:     ptr(-60.0),
		Method:     "gyro",
	}

	f.surveys.Seed(s)
	return s
}
