package research

import (
	"strings"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// studyTypeRules is evaluated in order; the first rule with a matching
// phrase wins. Matching is a plain substring test, so "rct" also matches
// inside longer words.
var studyTypeRules = []struct {
	phrases []string
	label   string
}{
	{[]string{"meta-analysis", "meta analysis"}, types.StudyMetaAnalysis},
	{[]string{"systematic review"}, types.StudySystematicReview},
	{[]string{"randomized controlled trial", "rct"}, types.StudyRCT},
	{[]string{"clinical trial"}, types.StudyClinicalTrial},
}

// ClassifyStudyType labels a publication by methodology from its title.
func ClassifyStudyType(title string) string {
	lower := strings.ToLower(title)
	for _, rule := range studyTypeRules {
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return rule.label
			}
		}
	}
	return types.StudyGeneric
}
