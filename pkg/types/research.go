// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Study type labels assigned to literature hits by title classification.
const (
	StudyMetaAnalysis     = "Meta-analysis"
	StudySystematicReview = "Systematic Review"
	StudyRCT              = "RCT"
	StudyClinicalTrial    = "Clinical Trial"
	StudyGeneric          = "Study"
)

// LiteratureHit is a publication returned by the literature index.
type LiteratureHit struct {
	// ID is the PubMed identifier (PMID).
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// Authors holds at most the first three author names, comma-joined.
	Authors string `json:"authors" yaml:"authors"`

	// Venue is the full journal name.
	Venue string `json:"venue" yaml:"venue"`

	// Year is the first token of the publication date, or empty.
	Year      string `json:"year" yaml:"year"`
	StudyType string `json:"studyType" yaml:"study_type"`
	URL       string `json:"url" yaml:"url"`
}

// TrialHit is a study returned by the clinical-trials registry.
type TrialHit struct {
	TrialID string `json:"trialId" yaml:"trial_id"`
	Title   string `json:"title" yaml:"title"`
	Status  string `json:"status" yaml:"status"`
	Phase   string `json:"phase" yaml:"phase"`
	URL     string `json:"url" yaml:"url"`
}

// RegulatoryHit is an application returned by the regulatory-approval database.
type RegulatoryHit struct {
	ApplicationNumber string `json:"applicationNumber" yaml:"application_number"`
	SponsorName       string `json:"sponsorName" yaml:"sponsor_name"`
	URL               string `json:"url" yaml:"url"`
}

// ResearchEnvelope bundles the findings of all three sources for one
// (drug, condition) query. Every slice is non-nil so it encodes as [].
type ResearchEnvelope struct {
	Literature []LiteratureHit `json:"literature" yaml:"literature"`
	Trials     []TrialHit      `json:"trials" yaml:"trials"`
	Regulatory []RegulatoryHit `json:"regulatory" yaml:"regulatory"`
}

// IsEmpty reports whether no source returned any finding.
func (e ResearchEnvelope) IsEmpty() bool {
	return len(e.Literature) == 0 && len(e.Trials) == 0 && len(e.Regulatory) == 0
}

// Normalized returns a copy of e with nil slices replaced by empty ones,
// for envelopes that did not come from an aggregator.
func (e ResearchEnvelope) Normalized() ResearchEnvelope {
	if e.Literature == nil {
		e.Literature = []LiteratureHit{}
	}
	if e.Trials == nil {
		e.Trials = []TrialHit{}
	}
	if e.Regulatory == nil {
		e.Regulatory = []RegulatoryHit{}
	}
	return e
}
