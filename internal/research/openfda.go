// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/protocol-analyzer/internal/httputil"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// openFDAURL is the Drugs@FDA endpoint. Declared as a var so tests can
// substitute an httptest server.
var openFDAURL = "https://api.fda.gov/drug/drugsfda.json"

const (
	openFDALimit       = 3
	openFDAApplication = "https://www.accessdata.fda.gov/scripts/cder/daf/index.cfm?event=overview.process&ApplNo=%s"
)

// OpenFDABackend queries the openFDA Drugs@FDA approval database. openFDA
// answers 404 when nothing matches, which surfaces as a StatusError.
type OpenFDABackend struct {
	Client    *http.Client
	UserAgent string
	APIKey    string
}

// Name returns the backend identifier.
func (b *OpenFDABackend) Name() string { return "openfda" }

// Search returns up to three applications whose active ingredient matches
// the drug. Query.Condition is ignored.
func (b *OpenFDABackend) Search(ctx context.Context, q Query) ([]types.RegulatoryHit, error) {
	if q.Drug == "" {
		return nil, errEmptyDrug
	}

	params := url.Values{
		"search": {fmt.Sprintf(`products.active_ingredients.name:"%s"`, q.Drug)},
		"limit":  {fmt.Sprintf("%d", openFDALimit)},
	}
	if b.APIKey != "" {
		params.Set("api_key", b.APIKey)
	}

	var resp drugsFDAResponse
	if err := httputil.GetJSON(ctx, b.Client, "openFDA", openFDAURL, params, b.UserAgent, &resp); err != nil {
		return nil, err
	}

	hits := make([]types.RegulatoryHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, types.RegulatoryHit{
			ApplicationNumber: r.ApplicationNumber,
			SponsorName:       r.SponsorName,
			URL:               fmt.Sprintf(openFDAApplication, r.ApplicationNumber),
		})
	}
	return hits, nil
}

// openFDA drugsfda JSON structures.
type drugsFDAResponse struct {
	Results []drugsFDAResult `json:"results"`
}

type drugsFDAResult struct {
	ApplicationNumber string `json:"application_number"`
	SponsorName       string `json:"sponsor_name"`
}
