package sectionflow

import (
	"time"
)

// Optional numeric fields are pointers: partially filled sections are an expected steady
// state and a zero value is not the same as "not captured yet".

// RigSetup is the single-record section describing the rig and contractor assigned to
// the hole.
type RigSetup struct {
	EntityMeta

	RigID       string     `json:"rigId" validate:"omitempty,uuid4"`
	RigName     string     `json:"rigName"`
	Contractor  string     `json:"contractor"`
	MastAngle   *float64   `json:"mastAngle"`
	SetupAt     *time.Time `json:"setupAt"`
	Comments    string     `json:"comments"`
}

// Survey is one downhole survey measurement row.
type Survey struct {
	EntityMeta

	DepthM     *float64   `json:"depthM"`
	AzimuthDeg *float64   `json:"azimuthDeg"`
	DipDeg     *float64   `json:"dipDeg"`
	Method     string     `json:"method"`
	SurveyedAt *time.Time `json:"surveyedAt"`
}

// GeologyInterval is one logged geology interval row.
type GeologyInterval struct {
	EntityMeta

	DepthFromM    *float64 `json:"depthFromM"`
	DepthToM      *float64 `json:"depthToM"`
	LithologyCode string   `json:"lithologyCode"`
	Weathering    string   `json:"weathering"`
	Comments      string   `json:"comments"`
}

// Sample is one sample interval row. Excluded samples stay on record but are withheld
// from dispatch.
type Sample struct {
	EntityMeta

	SampleNumber string   `json:"sampleNumber"`
	DepthFromM   *float64 `json:"depthFromM"`
	DepthToM     *float64 `json:"depthToM"`
	SampleType   string   `json:"sampleType"`
	DispatchID   string   `json:"dispatchId" validate:"omitempty,uuid4"`
	Excluded     bool     `json:"excluded"`
}

func (s *Sample) SetExcluded(excluded bool) {
	s.Excluded = excluded
}

func (s *Sample) IsExcluded() bool {
	return s.Excluded
}

// CollarSummary is the read-only sign-off projection of the hole. It is cached for
// display but never written back through the workflow.
type CollarSummary struct {
	EntityMeta

	HoleName     string   `json:"holeName"`
	Easting      *float64 `json:"easting"`
	Northing     *float64 `json:"northing"`
	ElevationRL  *float64 `json:"elevationRl"`
	PlannedDepth *float64 `json:"plannedDepthM"`
	TotalDepth   *float64 `json:"totalDepthM"`
}
