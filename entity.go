package sectionflow

import (
	"time"
)

// Entity is implemented by every persisted section row. Implementations embed EntityMeta
// so that identity resolution is explicit per type rather than probed at runtime.
type Entity interface {
	// EntityID returns the GUID primary key of the row.
	EntityID() string
	// PlanID returns the GUID of the drill plan the row belongs to.
	PlanID() string
	// Status returns the current approval lifecycle code.
	Status() RowStatus
	SetStatus(rs RowStatus)
	SetValidationStatus(vs ValidationStatus)
	// Touch stamps the last-modified time ahead of a local cache write.
	Touch(t time.Time)
}

// Ptr constrains a pointer to an entity struct. It allows the generic cache-aside
// service to allocate values of the underlying type while still treating them as
// entities.
type Ptr[T any] interface {
	*T
	Entity
}

// EntityMeta carries the bookkeeping shared by every section entity. Entity structs embed
// it, the same way a wire record would carry its envelope.
type EntityMeta struct {
	ID               string           `json:"id" validate:"required,uuid4"`
	DrillPlanID      string           `json:"drillPlanId" validate:"required,uuid4"`
	RowStatus        RowStatus        `json:"rowStatus"`
	ValidationStatus ValidationStatus `json:"validationStatus"`
	ModifiedAt       time.Time        `json:"modifiedAt"`
}

func (m *EntityMeta) EntityID() string {
	return m.ID
}

func (m *EntityMeta) PlanID() string {
	return m.DrillPlanID
}

func (m *EntityMeta) Status() RowStatus {
	return m.RowStatus
}

func (m *EntityMeta) SetStatus(rs RowStatus) {
	m.RowStatus = rs
}

func (m *EntityMeta) SetValidationStatus(vs ValidationStatus) {
	m.ValidationStatus = vs
}

func (m *EntityMeta) Touch(t time.Time) {
	m.ModifiedAt = t
}

// Excludable is implemented by entities that carry an exclusion flag, such as samples
// withdrawn from dispatch. The toggle actions on the drill hole operate through it.
type Excludable interface {
	Entity
	SetExcluded(excluded bool)
	IsExcluded() bool
}
