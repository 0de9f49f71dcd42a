package sectionflow

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// DrillHole is the in-memory aggregate of every section belonging to one drill hole,
// created when the hole is opened for editing and discarded when the editing context
// closes. The sections outlive the aggregate through the local cache and the remote
// store; the aggregate owns only the live editing state.
type DrillHole struct {
	engine      *Engine
	drillPlanID string

	// mu serialises every action so at most one save is in flight per hole. Rapid
	// repeated action calls queue rather than interleave.
	mu       sync.Mutex
	sections map[SectionKey]*Section
	order    []SectionKey
	summary  *CollarSummary
}

func (h *DrillHole) DrillPlanID() string {
	return h.drillPlanID
}

// Summary returns the read-only sign-off projection, or nil when no summary service was
// registered or the remote holds none.
func (h *DrillHole) Summary() *CollarSummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.summary
}

// SectionKeys returns the aggregate's section keys in registration order.
func (h *DrillHole) SectionKeys() []SectionKey {
	return h.order
}

// Section returns the live state of one section, or nil for an unknown key.
func (h *DrillHole) Section(key SectionKey) *Section {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sections[key]
}

// AnyDirty reports whether any section holds unsaved edits. It is derived for each call
// over the homogeneous section map so a newly registered section kind can never be left
// out of the aggregation.
func (h *DrillHole) AnyDirty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sections {
		if s.IsDirty() {
			return true
		}
	}

	return false
}

// NewRow allocates a Draft row for the section with a fresh GUID, ready to be filled in
// and passed to UpdateRow. It does not add the row to the section.
func (h *DrillHole) NewRow(key SectionKey) Entity {
	rt, ok := h.engine.sections[key]
	if !ok {
		return nil
	}

	return rt.newRow(h.drillPlanID)
}

// reservedFields are the envelope fields an edit partial may not touch: identity is
// fixed and status only moves through the workflow actions.
var reservedFields = map[string]bool{
	"id":               true,
	"drillPlanId":      true,
	"rowStatus":        true,
	"validationStatus": true,
	"modifiedAt":       true,
}

// UpdateRecord shallow-merges a partial into a single-record section's data and marks
// the section dirty. It is a pure edit-buffer operation: no validation runs here and it
// never fails. An unknown key or malformed partial is logged and ignored because UI
// components may race ahead of aggregate initialisation.
func (h *DrillHole) UpdateRecord(ctx context.Context, key SectionKey, partial map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rt, s, err := h.section(key)
	if err != nil {
		h.engine.logger.Debug(ctx, "update for unknown section ignored", MKV{
			"section_key": string(key),
		})
		return
	}

	if rt.cardinality != CardinalitySingle {
		h.engine.logger.Debug(ctx, "record update on multi-row section ignored", MKV{
			"section_key": string(key),
		})
		return
	}

	record := s.Record()
	if record == nil {
		record = rt.newRow(h.drillPlanID)
	}

	merged := make(map[string]any, len(partial))
	for k, v := range partial {
		if reservedFields[k] {
			continue
		}
		merged[k] = v
	}

	b, err := json.Marshal(merged)
	if err != nil {
		h.logUpdateFailure(ctx, key, err)
		return
	}

	// Decoding the partial onto the existing record is the shallow merge: only the
	// provided fields change.
	err = json.Unmarshal(b, record)
	if err != nil {
		h.logUpdateFailure(ctx, key, err)
		return
	}

	err = s.upsertRow(record)
	if err != nil {
		h.logUpdateFailure(ctx, key, err)
	}
}

// UpdateRow merges one edited row into a multi-row section, recomputing its dirty and
// new flags. Like UpdateRecord it never fails; problems are logged and the edit dropped.
func (h *DrillHole) UpdateRow(ctx context.Context, key SectionKey, row Entity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, s, err := h.section(key)
	if err != nil {
		h.engine.logger.Debug(ctx, "update for unknown section ignored", MKV{
			"section_key": string(key),
		})
		return
	}

	err = s.upsertRow(row)
	if err != nil {
		h.logUpdateFailure(ctx, key, err)
	}
}

// UpdateRows merges a full row set into a multi-row section, row by row.
func (h *DrillHole) UpdateRows(ctx context.Context, key SectionKey, rows []Entity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, s, err := h.section(key)
	if err != nil {
		h.engine.logger.Debug(ctx, "update for unknown section ignored", MKV{
			"section_key": string(key),
		})
		return
	}

	for _, row := range rows {
		err = s.upsertRow(row)
		if err != nil {
			h.logUpdateFailure(ctx, key, err)
		}
	}
}

// ValidateSection runs both validation tiers over every row of the section, keyed by
// entity ID. Callers such as the action bar may gate submit or approve on the business
// tier without performing a save.
func (h *DrillHole) ValidateSection(key SectionKey) (map[string]Validation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rt, s, err := h.section(key)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Validation, len(s.rows))
	for _, row := range s.rows {
		out[row.EntityID()] = h.engine.validator.Validate(row, rt.rules)
	}

	return out, nil
}

func (h *DrillHole) section(key SectionKey) (*sectionRuntime, *Section, error) {
	rt, ok := h.engine.sections[key]
	if !ok {
		return nil, nil, errors.Wrap(ErrSectionNotFound, "", j.MKV{
			"section_key": string(key),
		})
	}

	s, ok := h.sections[key]
	if !ok {
		return nil, nil, errors.Wrap(ErrSectionNotFound, "", j.MKV{
			"section_key": string(key),
		})
	}

	return rt, s, nil
}

func (h *DrillHole) logUpdateFailure(ctx context.Context, key SectionKey, err error) {
	h.engine.logger.Error(ctx, errors.Wrap(err, "section edit dropped", j.MKV{
		"section_key": string(key),
	}))
}
