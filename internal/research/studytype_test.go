package research

import (
	"testing"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

func TestClassifyStudyType(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"A Randomized Controlled Trial of X", types.StudyRCT},
		{"Meta-Analysis of Y", types.StudyMetaAnalysis},
		{"Case report", types.StudyGeneric},
		{"A meta analysis of statins", types.StudyMetaAnalysis},
		{"Systematic Review and Meta-Analysis of Metformin", types.StudyMetaAnalysis},
		{"Metformin in diabetes: a systematic review", types.StudySystematicReview},
		{"Aspirin after surgery (RCT)", types.StudyRCT},
		{"A Phase III Clinical Trial of Z", types.StudyClinicalTrial},
		{"Randomized controlled trial nested in a clinical trial", types.StudyRCT},
		{"Outcomes after myocardial infarction", types.StudyRCT},
		{"", types.StudyGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := ClassifyStudyType(tt.title); got != tt.want {
				t.Errorf("ClassifyStudyType(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
