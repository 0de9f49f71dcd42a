package sectionflow

import (
	"bytes"
)

// SectionKey identifies one named slice of a drill hole's data. The set of keys is
// closed: sections are registered on the builder and nothing else may invent one.
type SectionKey string

const (
	SectionRigSetup SectionKey = "rig_setup"
	SectionSurvey   SectionKey = "survey"
	SectionGeology  SectionKey = "geology"
	SectionSamples  SectionKey = "samples"
)

// Cardinality distinguishes single-record sections from grid sections.
type Cardinality int

const (
	CardinalitySingle Cardinality = 1
	CardinalityMulti  Cardinality = 2
)

// RowMeta carries the per-row edit flags for multi-row sections, keyed by entity ID.
type RowMeta struct {
	IsDirty bool
	IsNew   bool
}

// Section is the live editing state of one named slice of the hole's data. Single-record
// sections hold at most one row. The original snapshots are the marshalled form of the
// last-persisted data, used both for dirty detection and to reset rows on discard.
//
// A section's rows are mutated only through the owning DrillHole; no other writer is
// permitted or the dirty flags become meaningless.
type Section struct {
	Key         SectionKey
	Cardinality Cardinality

	rows     []Entity
	original map[string][]byte
	rowMeta  map[string]RowMeta
	dirty    bool
}

func newSection(key SectionKey, cardinality Cardinality) *Section {
	return &Section{
		Key:         key,
		Cardinality: cardinality,
		original:    make(map[string][]byte),
		rowMeta:     make(map[string]RowMeta),
	}
}

// Record returns the single record of a single-cardinality section, or nil when the
// section has not been captured yet.
func (s *Section) Record() Entity {
	if len(s.rows) == 0 {
		return nil
	}

	return s.rows[0]
}

// Rows returns the ordered row set. Callers must not mutate the returned entities
// directly; edits go through the drill hole so dirty tracking stays correct.
func (s *Section) Rows() []Entity {
	return s.rows
}

// Row returns the row with the given entity ID, or nil.
func (s *Section) Row(id string) Entity {
	for _, r := range s.rows {
		if r.EntityID() == id {
			return r
		}
	}

	return nil
}

// RowMetadata returns the edit flags for one row. Rows loaded from the cache start
// clean and not new.
func (s *Section) RowMetadata(id string) RowMeta {
	return s.rowMeta[id]
}

// IsDirty reports whether the section holds edits that have not completed a persistence
// round trip. It is set by edits and cleared only after a successful save, never
// optimistically.
func (s *Section) IsDirty() bool {
	return s.dirty
}

// Status derives the section's display status from its rows: the lowest lifecycle code
// present, since a section cannot be further along than its least-progressed row. An
// empty section is Draft.
func (s *Section) Status() RowStatus {
	if len(s.rows) == 0 {
		return RowStatusDraft
	}

	lowest := s.rows[0].Status()
	for _, r := range s.rows[1:] {
		if statusRank(r.Status()) < statusRank(lowest) {
			lowest = r.Status()
		}
	}

	return lowest
}

// statusRank orders statuses by lifecycle progress. Imported sits with Draft as it has
// not entered the approval flow, and Rejected ranks lowest as it needs rework first.
func statusRank(rs RowStatus) int {
	switch rs {
	case RowStatusRejected:
		return 0
	case RowStatusDraft, RowStatusImported:
		return 1
	case RowStatusComplete:
		return 2
	case RowStatusReviewed:
		return 3
	case RowStatusApproved:
		return 4
	case RowStatusSuperseded:
		return 5
	default:
		return 1
	}
}

// replaceRows installs a freshly loaded row set and resets all edit state. Used when a
// drill hole is opened or a section refreshed from the cache.
func (s *Section) replaceRows(rows []Entity) error {
	s.rows = rows
	s.original = make(map[string][]byte, len(rows))
	s.rowMeta = make(map[string]RowMeta, len(rows))
	s.dirty = false

	for _, r := range rows {
		b, err := marshalEntity(r)
		if err != nil {
			return err
		}

		s.original[r.EntityID()] = b
	}

	return nil
}

// upsertRow merges one edited row into the section and recomputes its flags. Rows with
// no persisted snapshot are new; rows whose marshalled form matches their snapshot stay
// clean, so re-applying an unchanged row does not dirty the section.
func (s *Section) upsertRow(row Entity) error {
	b, err := marshalEntity(row)
	if err != nil {
		return err
	}

	id := row.EntityID()
	replaced := false
	for i, r := range s.rows {
		if r.EntityID() == id {
			s.rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		s.rows = append(s.rows, row)
	}

	snapshot, hasSnapshot := s.original[id]
	meta := s.rowMeta[id]
	meta.IsNew = !hasSnapshot
	meta.IsDirty = !hasSnapshot || !bytes.Equal(snapshot, b)
	s.rowMeta[id] = meta

	if meta.IsDirty {
		s.dirty = true
	}

	return nil
}

// reconcileRow records a successful persistence round trip for one row: the current data
// becomes the snapshot and the row's edit flags clear. Reconciling row by row keeps a
// retried save idempotent when an earlier attempt persisted only part of the section.
func (s *Section) reconcileRow(row Entity) error {
	b, err := marshalEntity(row)
	if err != nil {
		return err
	}

	s.original[row.EntityID()] = b
	s.rowMeta[row.EntityID()] = RowMeta{}
	s.recomputeDirty()

	return nil
}

func (s *Section) recomputeDirty() {
	for _, meta := range s.rowMeta {
		if meta.IsDirty || meta.IsNew {
			s.dirty = true
			return
		}
	}

	s.dirty = false
}

// pendingRows returns the rows that need persistence, in section order.
func (s *Section) pendingRows() []Entity {
	var pending []Entity
	for _, r := range s.rows {
		meta := s.rowMeta[r.EntityID()]
		if meta.IsDirty || meta.IsNew {
			pending = append(pending, r)
		}
	}

	return pending
}

func marshalEntity(e Entity) ([]byte, error) {
	return Marshal(&e)
}
