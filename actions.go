package sectionflow

import (
	"context"
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/drillsoft/sectionflow/internal/metrics"
)

// ActionResult is the uniform envelope returned by every workflow action. No action
// throws across its public boundary; internal failures are converted into a failed
// result and the UI displays Message and Errors verbatim.
type ActionResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Data    any      `json:"data,omitempty"`
}

func successResult(msg string) ActionResult {
	return ActionResult{Success: true, Message: msg}
}

func failureResult(msg string, errs ...string) ActionResult {
	return ActionResult{Success: false, Message: msg, Errors: errs}
}

// Save validates and persists the section's pending rows. The database tier must pass
// or nothing is written and the dirty state is kept; business findings are stamped as
// HasWarnings on the payload and logged, never blocking. On success the persisted rows
// become the section's new snapshots and their dirty flags clear.
func (h *DrillHole) Save(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "save", func() ActionResult {
		return h.save(ctx, key)
	})
}

// Submit is save, then Draft to Complete, then save again. If the first save fails the
// status is untouched so there is no partial submission.
func (h *DrillHole) Submit(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "submit", func() ActionResult {
		res := h.save(ctx, key)
		if !res.Success {
			return res
		}

		return h.transition(ctx, key, RowStatusComplete)
	})
}

// Review moves a submitted section to Reviewed.
func (h *DrillHole) Review(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "review", func() ActionResult {
		return h.transition(ctx, key, RowStatusReviewed)
	})
}

// Approve moves a reviewed section to Approved.
func (h *DrillHole) Approve(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "approve", func() ActionResult {
		return h.transition(ctx, key, RowStatusApproved)
	})
}

// Reject sends a submitted or reviewed section back with a Rejected marker.
func (h *DrillHole) Reject(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "reject", func() ActionResult {
		return h.transition(ctx, key, RowStatusRejected)
	})
}

// Reopen returns a rejected or submitted section to Draft for rework.
func (h *DrillHole) Reopen(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "reopen", func() ActionResult {
		return h.transition(ctx, key, RowStatusDraft)
	})
}

// Supersede retires an approved section in favour of replacement data.
func (h *DrillHole) Supersede(ctx context.Context, key SectionKey) ActionResult {
	return h.do(ctx, "supersede", func() ActionResult {
		return h.transition(ctx, key, RowStatusSuperseded)
	})
}

// SetExcluded toggles the exclusion flag on one row and saves the section, following the
// same save-after-mutate shape as the status actions.
func (h *DrillHole) SetExcluded(ctx context.Context, key SectionKey, rowID string, excluded bool) ActionResult {
	return h.do(ctx, "set_excluded", func() ActionResult {
		_, s, err := h.section(key)
		if err != nil {
			return failureResult("unknown section", err.Error())
		}

		row := s.Row(rowID)
		if row == nil {
			return failureResult("row not found", errors.Wrap(ErrRowNotFound, "", j.MKV{
				"row_id": rowID,
			}).Error())
		}

		ex, ok := row.(Excludable)
		if !ok {
			return failureResult("section rows cannot be excluded")
		}

		if !row.Status().Editable() {
			return failureResult("section is no longer editable", ErrSectionNotEditable.Error())
		}

		ex.SetExcluded(excluded)
		err = s.upsertRow(row)
		if err != nil {
			return failureResult("marking row", err.Error())
		}

		return h.save(ctx, key)
	})
}

// do wraps an action with the aggregate lock, panic conversion, and outcome metrics.
// Nothing an action does may escape as a panic or error value.
func (h *DrillHole) do(ctx context.Context, action string, fn func() ActionResult) (res ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			h.engine.logger.Error(ctx, errors.New(fmt.Sprintf("recovered panic in %s action: %v", action, r)))
			res = failureResult(fmt.Sprintf("%s failed unexpectedly", action))
		}

		outcome := "failure"
		if res.Success {
			outcome = "success"
		}
		metrics.ActionOutcomes.WithLabelValues(action, outcome).Inc()
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	return fn()
}

func (h *DrillHole) save(ctx context.Context, key SectionKey) ActionResult {
	rt, s, err := h.section(key)
	if err != nil {
		return failureResult("unknown section", err.Error())
	}

	rows := s.pendingRows()
	if len(rows) == 0 {
		return successResult("nothing to save")
	}

	for _, row := range rows {
		if !row.Status().Editable() {
			return failureResult("section is no longer editable", ErrSectionNotEditable.Error())
		}
	}

	return h.persist(ctx, rt, s, rows)
}

// persist runs database-tier validation over the rows and writes them through the
// cache-aside service, reconciling each row as it lands so a retried save picks up
// exactly where a partial one stopped.
func (h *DrillHole) persist(ctx context.Context, rt *sectionRuntime, s *Section, rows []Entity) ActionResult {
	validations := make(map[string]Validation, len(rows))
	var dbErrs []string
	for _, row := range rows {
		v := h.engine.validator.Validate(row, rt.rules)
		validations[row.EntityID()] = v

		if !v.Database.IsValid {
			for _, m := range v.Database.Errors {
				dbErrs = append(dbErrs, m.String())
			}
		}
	}

	if len(dbErrs) > 0 {
		h.engine.logger.Error(ctx, errors.Wrap(ErrValidationFailed, "", j.MKV{
			"section_key": string(s.Key),
			"errors":      fmt.Sprint(dbErrs),
		}))

		return failureResult("validation failed", dbErrs...)
	}

	for _, row := range rows {
		v := validations[row.EntityID()]
		row.SetValidationStatus(v.Status())

		if !v.Business.IsValid {
			for _, m := range v.Business.Warnings {
				h.engine.logger.Debug(ctx, "business validation warning", MKV{
					"section_key": string(s.Key),
					"row_id":      row.EntityID(),
					"warning":     m.String(),
				})
			}
		}

		meta := s.RowMetadata(row.EntityID())
		err := rt.svc.saveEntity(ctx, row, meta.IsNew)
		if err != nil {
			h.engine.logger.Error(ctx, errors.Wrap(err, "saving section row", j.MKV{
				"section_key": string(s.Key),
				"row_id":      row.EntityID(),
			}))

			return failureResult("saving section failed", err.Error())
		}

		err = s.reconcileRow(row)
		if err != nil {
			return failureResult("saving section failed", err.Error())
		}
	}

	return successResult("section saved")
}

// transition validates the status change against the lifecycle table for every row,
// applies it, and saves. The orchestrator enforces legality itself rather than trusting
// the action bar to have offered only legal actions. On a failed save the in-memory
// statuses are rolled back so the edit buffer never claims an unsaved lifecycle change.
func (h *DrillHole) transition(ctx context.Context, key SectionKey, to RowStatus) ActionResult {
	rt, s, err := h.section(key)
	if err != nil {
		return failureResult("unknown section", err.Error())
	}

	var moving []Entity
	for _, row := range s.rows {
		if row.Status() == to {
			// Idempotent: rows already at the destination are left alone.
			continue
		}

		if !CanTransition(row.Status(), to) {
			return failureResult("illegal status transition", errors.Wrap(ErrInvalidTransition, "", j.MKV{
				"section_key": string(key),
				"row_id":      row.EntityID(),
				"from":        row.Status().String(),
				"to":          to.String(),
			}).Error())
		}

		moving = append(moving, row)
	}

	if len(moving) == 0 {
		return successResult("section already " + to.String())
	}

	previous := make(map[string]RowStatus, len(moving))
	for _, row := range moving {
		previous[row.EntityID()] = row.Status()
		row.SetStatus(to)

		err = s.upsertRow(row)
		if err != nil {
			return failureResult("marking section rows", err.Error())
		}
	}

	res := h.persist(ctx, rt, s, moving)
	if !res.Success {
		for _, row := range moving {
			meta := s.RowMetadata(row.EntityID())
			if !meta.IsDirty && !meta.IsNew {
				// The row completed its round trip before the failure; its persisted
				// status is the new one and must not be wound back in memory.
				continue
			}

			row.SetStatus(previous[row.EntityID()])
			if uerr := s.upsertRow(row); uerr != nil {
				h.engine.logger.Error(ctx, errors.Wrap(uerr, "rolling back status", j.MKV{
					"section_key": string(key),
					"row_id":      row.EntityID(),
				}))
			}
		}

		return res
	}

	metrics.StatusChanges.WithLabelValues(to.String()).Add(float64(len(moving)))

	return successResult("section " + to.String())
}
