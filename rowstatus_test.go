package sectionflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drillsoft/sectionflow"
)

func TestCanTransition(t *testing.T) {
	all := []sectionflow.RowStatus{
		sectionflow.RowStatusDraft,
		sectionflow.RowStatusComplete,
		sectionflow.RowStatusReviewed,
		sectionflow.RowStatusApproved,
		sectionflow.RowStatusSuperseded,
		sectionflow.RowStatusImported,
		sectionflow.RowStatusRejected,
	}

	allowed := map[sectionflow.RowStatus][]sectionflow.RowStatus{
		sectionflow.RowStatusDraft: {
			sectionflow.RowStatusComplete,
		},
		sectionflow.RowStatusComplete: {
			sectionflow.RowStatusDraft,
			sectionflow.RowStatusReviewed,
			sectionflow.RowStatusRejected,
		},
		sectionflow.RowStatusReviewed: {
			sectionflow.RowStatusDraft,
			sectionflow.RowStatusApproved,
			sectionflow.RowStatusRejected,
		},
		sectionflow.RowStatusApproved: {
			sectionflow.RowStatusSuperseded,
		},
		sectionflow.RowStatusSuperseded: {},
		sectionflow.RowStatusImported: {
			sectionflow.RowStatusDraft,
			sectionflow.RowStatusComplete,
		},
		sectionflow.RowStatusRejected: {
			sectionflow.RowStatusDraft,
		},
	}

	for _, from := range all {
		valid := make(map[sectionflow.RowStatus]bool)
		for _, to := range allowed[from] {
			valid[to] = true
		}

		for _, to := range all {
			require.Equal(t, valid[to], sectionflow.CanTransition(from, to),
				"%v -> %v", from, to)
		}
	}
}

func TestCanTransitionSelf(t *testing.T) {
	for _, rs := range []sectionflow.RowStatus{
		sectionflow.RowStatusDraft,
		sectionflow.RowStatusComplete,
		sectionflow.RowStatusReviewed,
		sectionflow.RowStatusApproved,
		sectionflow.RowStatusSuperseded,
		sectionflow.RowStatusImported,
		sectionflow.RowStatusRejected,
	} {
		require.False(t, sectionflow.CanTransition(rs, rs), "%v -> %v", rs, rs)
	}
}

func TestAvailableTransitions(t *testing.T) {
	require.Equal(t,
		[]sectionflow.RowStatus{
			sectionflow.RowStatusDraft,
			sectionflow.RowStatusReviewed,
			sectionflow.RowStatusRejected,
		},
		sectionflow.AvailableTransitions(sectionflow.RowStatusComplete),
	)

	require.Equal(t,
		[]sectionflow.RowStatus{
			sectionflow.RowStatusDraft,
			sectionflow.RowStatusComplete,
		},
		sectionflow.AvailableTransitions(sectionflow.RowStatusImported),
	)

	require.Nil(t, sectionflow.AvailableTransitions(sectionflow.RowStatusSuperseded))
	require.Nil(t, sectionflow.AvailableTransitions(sectionflow.RowStatus(42)))
}

func TestEditable(t *testing.T) {
	require.True(t, sectionflow.RowStatusDraft.Editable())
	require.True(t, sectionflow.RowStatusComplete.Editable())
	require.True(t, sectionflow.RowStatusReviewed.Editable())
	require.True(t, sectionflow.RowStatusImported.Editable())
	require.True(t, sectionflow.RowStatusRejected.Editable())

	require.False(t, sectionflow.RowStatusApproved.Editable())
	require.False(t, sectionflow.RowStatusSuperseded.Editable())
}

func TestToRowStatus(t *testing.T) {
	ctx := context.Background()

	for _, code := range []int{0, 1, 2, 3, 4, 99, 255} {
		require.Equal(t, sectionflow.RowStatus(code), sectionflow.ToRowStatus(ctx, code, nil))
	}

	// Anything outside the defined codes falls back to Draft.
	for _, code := range []int{-1, 5, 7, 98, 100, 254, 256} {
		require.Equal(t, sectionflow.RowStatusDraft, sectionflow.ToRowStatus(ctx, code, nil))
	}
}

func TestRowStatusString(t *testing.T) {
	require.Equal(t, "Draft", sectionflow.RowStatusDraft.String())
	require.Equal(t, "Rejected", sectionflow.RowStatusRejected.String())
	require.Equal(t, "RowStatus(7)", sectionflow.RowStatus(7).String())
}
