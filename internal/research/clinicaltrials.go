// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/protocol-analyzer/internal/httputil"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// clinicalTrialsURL is the study_fields query endpoint. Declared as a var so
// tests can substitute an httptest server.
var clinicalTrialsURL = "https://clinicaltrials.gov/api/query/study_fields"

const (
	clinicalTrialsFields  = "NCTId,BriefTitle,OverallStatus,Phase,Condition,InterventionName"
	clinicalTrialsMaxRank = 5
	clinicalTrialsStudy   = "https://clinicaltrials.gov/ct2/show/%s"
)

// ClinicalTrialsBackend queries the ClinicalTrials.gov study registry.
type ClinicalTrialsBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *ClinicalTrialsBackend) Name() string { return "clinical_trials" }

// Search returns the first five studies ranked for the drug (and condition).
func (b *ClinicalTrialsBackend) Search(ctx context.Context, q Query) ([]types.TrialHit, error) {
	if q.Drug == "" {
		return nil, errEmptyDrug
	}

	params := url.Values{
		"expr":    {buildTrialsExpr(q)},
		"fields":  {clinicalTrialsFields},
		"min_rnk": {"1"},
		"max_rnk": {fmt.Sprintf("%d", clinicalTrialsMaxRank)},
		"fmt":     {"json"},
	}

	var resp studyFieldsResponse
	if err := httputil.GetJSON(ctx, b.Client, "ClinicalTrials.gov", clinicalTrialsURL, params, b.UserAgent, &resp); err != nil {
		return nil, err
	}

	studies := resp.StudyFieldsResponse.StudyFields
	hits := make([]types.TrialHit, 0, len(studies))
	for _, s := range studies {
		nctID := firstValue(s.NCTId)
		hits = append(hits, types.TrialHit{
			TrialID: nctID,
			Title:   firstValue(s.BriefTitle),
			Status:  firstValue(s.OverallStatus),
			Phase:   firstValue(s.Phase),
			URL:     fmt.Sprintf(clinicalTrialsStudy, nctID),
		})
	}
	return hits, nil
}

// buildTrialsExpr AND-joins the drug and the condition when present.
func buildTrialsExpr(q Query) string {
	terms := []string{q.Drug}
	if q.Condition != "" {
		terms = append(terms, q.Condition)
	}
	return strings.Join(terms, " AND ")
}

// firstValue returns the first element of a study field, which the registry
// always encodes as an array.
func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// ClinicalTrials.gov study_fields JSON structures.
type studyFieldsResponse struct {
	StudyFieldsResponse struct {
		NStudiesFound int          `json:"NStudiesFound"`
		StudyFields   []studyField `json:"StudyFields"`
	} `json:"StudyFieldsResponse"`
}

type studyField struct {
	Rank             int      `json:"Rank"`
	NCTId            []string `json:"NCTId"`
	BriefTitle       []string `json:"BriefTitle"`
	OverallStatus    []string `json:"OverallStatus"`
	Phase            []string `json:"Phase"`
	Condition        []string `json:"Condition"`
	InterventionName []string `json:"InterventionName"`
}
