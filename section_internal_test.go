package sectionflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func draftSurvey(planID string, depth float64) *Survey {
	return &Survey{
		EntityMeta: EntityMeta{
			ID:          uuid.NewString(),
			DrillPlanID: planID,
		},
		DepthM: &depth,
		Method: "gyro",
	}
}

func TestSectionReplaceRowsResetsEditState(t *testing.T) {
	s := newSection(SectionSurvey, CardinalityMulti)
	planID := uuid.NewString()

	row := draftSurvey(planID, 50)
	require.NoError(t, s.upsertRow(row))
	require.True(t, s.IsDirty())

	require.NoError(t, s.replaceRows([]Entity{row}))
	require.False(t, s.IsDirty())
	require.Equal(t, RowMeta{}, s.RowMetadata(row.EntityID()))
}

func TestSectionUpsertRowFlags(t *testing.T) {
	s := newSection(SectionSurvey, CardinalityMulti)
	planID := uuid.NewString()

	loaded := draftSurvey(planID, 50)
	require.NoError(t, s.replaceRows([]Entity{loaded}))

	// Re-applying the loaded row unchanged keeps it clean.
	require.NoError(t, s.upsertRow(loaded))
	require.Equal(t, RowMeta{}, s.RowMetadata(loaded.EntityID()))
	require.False(t, s.IsDirty())

	loaded.Method = "magnetic"
	require.NoError(t, s.upsertRow(loaded))
	require.Equal(t, RowMeta{IsDirty: true}, s.RowMetadata(loaded.EntityID()))
	require.True(t, s.IsDirty())

	added := draftSurvey(planID, 100)
	require.NoError(t, s.upsertRow(added))
	require.Equal(t, RowMeta{IsDirty: true, IsNew: true}, s.RowMetadata(added.EntityID()))
	require.Len(t, s.Rows(), 2)

	require.Equal(t, []Entity{loaded, added}, s.pendingRows())
}

func TestSectionReconcileRow(t *testing.T) {
	s := newSection(SectionSurvey, CardinalityMulti)
	planID := uuid.NewString()

	first := draftSurvey(planID, 50)
	second := draftSurvey(planID, 100)
	require.NoError(t, s.upsertRow(first))
	require.NoError(t, s.upsertRow(second))

	// Reconciling one row leaves the other pending, so a partial save can resume.
	require.NoError(t, s.reconcileRow(first))
	require.Equal(t, RowMeta{}, s.RowMetadata(first.EntityID()))
	require.True(t, s.IsDirty())
	require.Equal(t, []Entity{second}, s.pendingRows())

	require.NoError(t, s.reconcileRow(second))
	require.False(t, s.IsDirty())
	require.Empty(t, s.pendingRows())

	// The reconciled data is the new snapshot; re-applying it stays clean.
	require.NoError(t, s.upsertRow(first))
	require.False(t, s.IsDirty())
}

func TestSectionRecord(t *testing.T) {
	s := newSection(SectionRigSetup, CardinalitySingle)
	require.Nil(t, s.Record())

	rig := &RigSetup{
		EntityMeta: EntityMeta{
			ID:          uuid.NewString(),
			DrillPlanID: uuid.NewString(),
		},
		RigName: "Rig 12",
	}
	require.NoError(t, s.upsertRow(rig))
	require.Equal(t, Entity(rig), s.Record())
}

func TestStatusRank(t *testing.T) {
	// Rejected ranks below everything so a single rejected row drags the section back.
	require.Less(t, statusRank(RowStatusRejected), statusRank(RowStatusDraft))
	require.Equal(t, statusRank(RowStatusDraft), statusRank(RowStatusImported))
	require.Less(t, statusRank(RowStatusComplete), statusRank(RowStatusReviewed))
	require.Less(t, statusRank(RowStatusReviewed), statusRank(RowStatusApproved))
	require.Less(t, statusRank(RowStatusApproved), statusRank(RowStatusSuperseded))
}

func TestNewRowInitialisesMeta(t *testing.T) {
	b := NewBuilder("test")
	RegisterSection[Survey](b, SectionSurvey, CardinalityMulti, "surveys", nil)

	rt := b.engine.sections[SectionSurvey]
	planID := uuid.NewString()

	row := rt.newRow(planID)
	require.NotEmpty(t, row.EntityID())
	require.Equal(t, planID, row.PlanID())
	require.Equal(t, RowStatusDraft, row.Status())

	// Each allocation gets its own identity.
	require.NotEqual(t, row.EntityID(), rt.newRow(planID).EntityID())
}

func TestRegisterSectionDuplicateKeyPanics(t *testing.T) {
	b := NewBuilder("test")
	RegisterSection[Survey](b, SectionSurvey, CardinalityMulti, "surveys", nil)

	require.Panics(t, func() {
		RegisterSection[Survey](b, SectionSurvey, CardinalityMulti, "surveys_again", nil)
	})
}
