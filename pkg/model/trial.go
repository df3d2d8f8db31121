package model

import "strings"

// TrialID is the registry identifier of a clinical trial (NCT number)
type TrialID string

// Trial is a stored clinical trial record. Search results carry the cosine
// distance to the query embedding in Distance; stored rows leave it zero.
type Trial struct {
	ID            TrialID   `json:"nct_number"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	Status        string    `json:"status,omitempty"`
	Conditions    string    `json:"conditions"`
	Summary       string    `json:"summary"`
	Interventions string    `json:"interventions"`
	Sponsor       string    `json:"sponsor,omitempty"`
	Sex           Sex       `json:"sex,omitempty"`
	Age           string    `json:"age,omitempty"`
	Phases        string    `json:"phases,omitempty"`
	Enrollment    float64   `json:"enrollment,omitempty"`
	StudyType     string    `json:"study_type,omitempty"`
	Locations     string    `json:"locations,omitempty"`
	EmbeddingText string    `json:"-"`
	Embedding     []float32 `json:"-"`

	Distance float64 `json:"distance"`
}

// FirstLocation returns the first pipe-separated location entry, used for the
// report map. Empty when the trial has no location data.
func (t *Trial) FirstLocation() string {
	first, _, _ := strings.Cut(t.Locations, "|")
	return strings.TrimSpace(first)
}
