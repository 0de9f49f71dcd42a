package sectionflow_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/drillsoft/sectionflow"
)

func TestOpenDrillHoleLoadsSections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := uuid.NewString()

	seedSurvey(f, uuid.NewString(), planID, 50, sectionflow.RowStatusComplete)
	seedSurvey(f, uuid.NewString(), planID, 100, sectionflow.RowStatusComplete)
	seedSurvey(f, uuid.NewString(), uuid.NewString(), 10, sectionflow.RowStatusDraft)

	f.summaries.Seed(&sectionflow.CollarSummary{
		EntityMeta: sectionflow.EntityMeta{
			ID:          uuid.NewString(),
			DrillPlanID: planID,
		},
		HoleName: "DDH-001",
	})

	h, err := f.engine.OpenDrillHole(ctx, planID)
	require.NoError(t, err)

	require.Equal(t, planID, h.DrillPlanID())
	require.Equal(t, []sectionflow.SectionKey{
		sectionflow.SectionRigSetup,
		sectionflow.SectionSurvey,
		sectionflow.SectionGeology,
		sectionflow.SectionSamples,
	}, h.SectionKeys())

	// Only the rows of this plan are loaded.
	require.Len(t, h.Section(sectionflow.SectionSurvey).Rows(), 2)
	require.Empty(t, h.Section(sectionflow.SectionGeology).Rows())
	require.Nil(t, h.Section(sectionflow.SectionRigSetup).Record())

	require.NotNil(t, h.Summary())
	require.Equal(t, "DDH-001", h.Summary().HoleName)

	// A freshly opened hole has no edits.
	require.False(t, h.AnyDirty())
	require.False(t, h.Section(sectionflow.SectionSurvey).IsDirty())
}

func TestOpenDrillHoleNormalisesUnknownStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := uuid.NewString()

	seedSurvey(f, uuid.NewString(), planID, 50, sectionflow.RowStatus(42))

	h, err := f.engine.OpenDrillHole(ctx, planID)
	require.NoError(t, err)

	rows := h.Section(sectionflow.SectionSurvey).Rows()
	require.Len(t, rows, 1)
	require.Equal(t, sectionflow.RowStatusDraft, rows[0].Status())
}

func TestUpdateRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.engine.OpenDrillHole(ctx, uuid.NewString())
	require.NoError(t, err)

	h.UpdateRecord(ctx, sectionflow.SectionRigSetup, map[string]any{
		"rigName":    "Rig 12",
		"contractor": "Boart",
	})

	s := h.Section(sectionflow.SectionRigSetup)
	require.True(t, s.IsDirty())
	require.True(t, h.AnyDirty())

	rig, ok := s.Record().(*sectionflow.RigSetup)
	require.True(t, ok)
	require.Equal(t, "Rig 12", rig.RigName)
	require.Equal(t, "Boart", rig.Contractor)
	require.Equal(t, h.DrillPlanID(), rig.PlanID())
	require.Equal(t, sectionflow.RowStatusDraft, rig.Status())

	meta := s.RowMetadata(rig.EntityID())
	require.True(t, meta.IsNew)
	require.True(t, meta.IsDirty)

	// A later partial only touches the fields it names.
	h.UpdateRecord(ctx, sectionflow.SectionRigSetup, map[string]any{
		"comments": "set up on the east pad",
	})
	rig = s.Record().(*sectionflow.RigSetup)
	require.Equal(t, "Rig 12", rig.RigName)
	require.Equal(t, "set up on the east pad", rig.Comments)
}

func TestUpdateRecordIgnoresReservedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.engine.OpenDrillHole(ctx, uuid.NewString())
	require.NoError(t, err)

	h.UpdateRecord(ctx, sectionflow.SectionRigSetup, map[string]any{
		"rigName":   "Rig 12",
		"id":        "hijacked",
		"rowStatus": 3,
	})

	rig := h.Section(sectionflow.SectionRigSetup).Record()
	require.NotEqual(t, "hijacked", rig.EntityID())
	require.Equal(t, sectionflow.RowStatusDraft, rig.Status())
}

func TestUpdateRecordUnknownSectionIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.engine.OpenDrillHole(ctx, uuid.NewString())
	require.NoError(t, err)

	require.NotPanics(t, func() {
		h.UpdateRecord(ctx, sectionflow.SectionKey("no_such_section"), map[string]any{
			"rigName": "Rig 12",
		})
	})
	require.False(t, h.AnyDirty())

	// A record update on a grid section is likewise dropped.
	h.UpdateRecord(ctx, sectionflow.SectionSurvey, map[string]any{"method": "gyro"})
	require.False(t, h.AnyDirty())
}

func TestUpdateRowDirtyTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := uuid.NewString()

	existing := seedSurvey(f, uuid.NewString(), planID, 50, sectionflow.RowStatusDraft)

	h, err := f.engine.OpenDrillHole(ctx, planID)
	require.NoError(t, err)

	s := h.Section(sectionflow.SectionSurvey)

	// Re-applying an unchanged row leaves the section clean.
	h.UpdateRow(ctx, sectionflow.SectionSurvey, s.Row(existing.EntityID()))
	require.False(t, s.IsDirty())

	edited := s.Row(existing.EntityID()).(*sectionflow.Survey)
	edited.DepthM = ptr(55.0)
	h.UpdateRow(ctx, sectionflow.SectionSurvey, edited)

	require.True(t, s.IsDirty())
	meta := s.RowMetadata(existing.EntityID())
	require.True(t, meta.IsDirty)
	require.False(t, meta.IsNew)

	row := h.NewRow(sectionflow.SectionSurvey).(*sectionflow.Survey)
	row.DepthM = ptr(100.0)
	row.Method = "gyro"
	h.UpdateRow(ctx, sectionflow.SectionSurvey, row)

	require.Len(t, s.Rows(), 2)
	meta = s.RowMetadata(row.EntityID())
	require.True(t, meta.IsDirty)
	require.True(t, meta.IsNew)
}

func TestNewRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := uuid.NewString()

	h, err := f.engine.OpenDrillHole(ctx, planID)
	require.NoError(t, err)

	row := h.NewRow(sectionflow.SectionSamples)
	require.NotNil(t, row)
	require.NotEmpty(t, row.EntityID())
	require.Equal(t, planID, row.PlanID())
	require.Equal(t, sectionflow.RowStatusDraft, row.Status())

	// Allocation does not add the row to the section.
	require.Empty(t, h.Section(sectionflow.SectionSamples).Rows())

	require.Nil(t, h.NewRow(sectionflow.SectionKey("no_such_section")))
}

func TestSectionStatusIsLowestRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planID := uuid.NewString()

	seedSurvey(f, uuid.NewString(), planID, 50, sectionflow.RowStatusApproved)
	seedSurvey(f, uuid.NewString(), planID, 100, sectionflow.RowStatusComplete)

	h, err := f.engine.OpenDrillHole(ctx, planID)
	require.NoError(t, err)

	s := h.Section(sectionflow.SectionSurvey)
	require.Equal(t, sectionflow.RowStatusComplete, s.Status())

	// An empty section displays as Draft.
	require.Equal(t, sectionflow.RowStatusDraft, h.Section(sectionflow.SectionGeology).Status())
}

func TestValidateSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.engine.OpenDrillHole(ctx, uuid.NewString())
	require.NoError(t, err)

	row := h.NewRow(sectionflow.SectionGeology).(*sectionflow.GeologyInterval)
	row.DepthFromM = ptr(10.0)
	row.DepthToM = ptr(5.0)
	row.LithologyCode = "GRN"
	h.UpdateRow(ctx, sectionflow.SectionGeology, row)

	validations, err := h.ValidateSection(sectionflow.SectionGeology)
	require.NoError(t, err)
	require.Len(t, validations, 1)

	v := validations[row.EntityID()]
	require.True(t, v.Database.IsValid)
	require.False(t, v.Business.IsValid)
	require.Equal(t, sectionflow.ValidationStatusHasWarnings, v.Status())

	_, err = h.ValidateSection(sectionflow.SectionKey("no_such_section"))
	require.Error(t, err)
}
