package sectionflow

import (
	"context"
	"fmt"
	"sort"
	"strconv"
)

// RowStatus is the approval-lifecycle code attached to every persisted entity. The numeric
// values are part of the wire contract with the remote system of record and must not change.
type RowStatus int

const (
	RowStatusDraft      RowStatus = 0
	RowStatusComplete   RowStatus = 1
	RowStatusReviewed   RowStatus = 2
	RowStatusApproved   RowStatus = 3
	RowStatusSuperseded RowStatus = 4
	RowStatusImported   RowStatus = 99
	RowStatusRejected   RowStatus = 255
)

func (rs RowStatus) String() string {
	switch rs {
	case RowStatusDraft:
		return "Draft"
	case RowStatusComplete:
		return "Complete"
	case RowStatusReviewed:
		return "Reviewed"
	case RowStatusApproved:
		return "Approved"
	case RowStatusSuperseded:
		return "Superseded"
	case RowStatusImported:
		return "Imported"
	case RowStatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("RowStatus(%d)", int(rs))
	}
}

// Known reports whether rs is one of the defined lifecycle codes.
func (rs RowStatus) Known() bool {
	switch rs {
	case RowStatusDraft, RowStatusComplete, RowStatusReviewed, RowStatusApproved,
		RowStatusSuperseded, RowStatusImported, RowStatusRejected:
		return true
	default:
		return false
	}
}

// Editable reports whether entities at this status may still be modified and saved.
func (rs RowStatus) Editable() bool {
	switch rs {
	case RowStatusApproved, RowStatusSuperseded:
		return false
	default:
		return true
	}
}

// rowStatusTransitions is the fixed adjacency table for the approval lifecycle. A status
// absent from the table is terminal. Every status mutation in the engine is validated
// against this table before it is written.
var rowStatusTransitions = map[RowStatus]map[RowStatus]bool{
	RowStatusDraft: {
		RowStatusComplete: true,
	},
	RowStatusComplete: {
		RowStatusDraft:    true,
		RowStatusReviewed: true,
		RowStatusRejected: true,
	},
	RowStatusReviewed: {
		RowStatusDraft:    true,
		RowStatusApproved: true,
		RowStatusRejected: true,
	},
	RowStatusApproved: {
		RowStatusSuperseded: true,
	},
	RowStatusRejected: {
		RowStatusDraft: true,
	},
	RowStatusImported: {
		RowStatusDraft:    true,
		RowStatusComplete: true,
	},
}

// CanTransition reports whether the lifecycle permits moving from one status to another.
func CanTransition(from, to RowStatus) bool {
	valid, ok := rowStatusTransitions[from]
	if !ok {
		return false
	}

	return valid[to]
}

// AvailableTransitions returns the statuses reachable from the provided status in a
// deterministic (ascending code) order. A terminal status returns nil.
func AvailableTransitions(from RowStatus) []RowStatus {
	valid, ok := rowStatusTransitions[from]
	if !ok {
		return nil
	}

	next := make([]RowStatus, 0, len(valid))
	for to := range valid {
		next = append(next, to)
	}

	sort.Slice(next, func(i, j int) bool {
		return next[i] < next[j]
	})

	return next
}

// ToRowStatus maps a raw status code from the remote system to a RowStatus. Unknown codes
// default to Draft with a logged diagnostic rather than an error as malformed remote data
// must never take the editing session down.
func ToRowStatus(ctx context.Context, code int, log Logger) RowStatus {
	rs := RowStatus(code)
	if !rs.Known() {
		if log != nil {
			log.Debug(ctx, "unknown row status code, defaulting to Draft", MKV{
				"code": strconv.Itoa(code),
			})
		}

		return RowStatusDraft
	}

	return rs
}

// ValidationStatus marks a persisted payload as either fully valid or carrying business
// rule warnings. Database tier failures are never persisted and so have no marker.
type ValidationStatus int

const (
	ValidationStatusUnknown     ValidationStatus = 0
	ValidationStatusValid       ValidationStatus = 1
	ValidationStatusHasWarnings ValidationStatus = 2
)

func (vs ValidationStatus) String() string {
	switch vs {
	case ValidationStatusValid:
		return "Valid"
	case ValidationStatusHasWarnings:
		return "HasWarnings"
	default:
		return "Unknown"
	}
}
