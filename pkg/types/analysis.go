// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the protocol-analyzer
// pipeline: analysis results produced from protocol documents, research
// findings gathered from public registries, and component configuration.
package types

import "encoding/json"

// TimestampLayout formats AnalysisResult timestamps and report file names.
const TimestampLayout = "20060102_150405"

// DrugRecord is one medication identified in a clinical protocol.
type DrugRecord struct {
	// ID is unique within one AnalysisResult.
	ID string `json:"id" yaml:"id"`

	// Name is the display name as written in the protocol.
	Name string `json:"name" yaml:"name"`

	// InnEnglish is the international nonproprietary name in English.
	InnEnglish string `json:"innEnglish" yaml:"inn_english"`

	// InnRussian is the international nonproprietary name in Russian.
	InnRussian string `json:"innRussian" yaml:"inn_russian"`

	Dosage    string `json:"dosage" yaml:"dosage"`
	Route     string `json:"route" yaml:"route"`
	Frequency string `json:"frequency" yaml:"frequency"`
	Duration  string `json:"duration" yaml:"duration"`

	// Indication is the reason the drug appears in the protocol.
	Indication string `json:"indication" yaml:"indication"`

	// TargetCondition is the normalized condition used as the research search key.
	TargetCondition string `json:"targetCondition" yaml:"target_condition"`
}

// SearchName returns the name research lookups should use: the English INN
// when known, otherwise the display name.
func (d DrugRecord) SearchName() string {
	if d.InnEnglish != "" {
		return d.InnEnglish
	}
	return d.Name
}

// AnalysisResult is the outcome of analyzing one protocol document. A
// failed result carries only Success=false, Error and Timestamp.
type AnalysisResult struct {
	Success         bool         `json:"success" yaml:"success"`
	ProtocolSummary string       `json:"protocol_summary,omitempty" yaml:"protocol_summary,omitempty"`
	MainCondition   string       `json:"main_condition,omitempty" yaml:"main_condition,omitempty"`
	Drugs           []DrugRecord `json:"drugs,omitempty" yaml:"drugs,omitempty"`
	Timestamp       string       `json:"analysis_timestamp" yaml:"analysis_timestamp"`
	Error           string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// MarshalJSON writes a success result with every content field present,
// drugs as [] when there are none, and a failure result with only success,
// error and analysis_timestamp.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success   bool   `json:"success"`
			Error     string `json:"error"`
			Timestamp string `json:"analysis_timestamp"`
		}{false, r.Error, r.Timestamp})
	}

	drugs := r.Drugs
	if drugs == nil {
		drugs = []DrugRecord{}
	}
	return json.Marshal(struct {
		Success         bool         `json:"success"`
		ProtocolSummary string       `json:"protocol_summary"`
		MainCondition   string       `json:"main_condition"`
		Drugs           []DrugRecord `json:"drugs"`
		Timestamp       string       `json:"analysis_timestamp"`
	}{true, r.ProtocolSummary, r.MainCondition, drugs, r.Timestamp})
}
