// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/protocol-analyzer/internal/httputil"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// E-utilities endpoints. Declared as vars so tests can substitute an
// httptest server.
var (
	pubmedSearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedSummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

const (
	pubmedMaxResults = 5
	pubmedMaxAuthors = 3
	pubmedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	pubmedTool       = "protocol-analyzer"
)

// pubmedPublicationTypes restricts literature hits to high-evidence study designs.
var pubmedPublicationTypes = []string{
	"randomized controlled trial",
	"meta-analysis",
	"systematic review",
}

// PubMedBackend searches PubMed in two phases: esearch for identifiers,
// then one batched esummary call for their metadata.
type PubMedBackend struct {
	Client    *http.Client
	UserAgent string
	// APIKey and Email are optional E-utilities credentials.
	APIKey string
	Email  string
}

// Name returns the backend identifier.
func (b *PubMedBackend) Name() string { return "pubmed" }

// Search returns literature hits in the order esearch ranked them.
func (b *PubMedBackend) Search(ctx context.Context, q Query) ([]types.LiteratureHit, error) {
	if q.Drug == "" {
		return nil, errEmptyDrug
	}

	ids, err := b.searchIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := b.fetchSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	hits := make([]types.LiteratureHit, 0, len(ids))
	for _, id := range ids {
		raw, ok := summaries[id]
		if !ok {
			continue
		}
		var doc pubmedSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		hits = append(hits, types.LiteratureHit{
			ID:        id,
			Title:     doc.Title,
			Authors:   condenseAuthors(doc.Authors),
			Venue:     doc.FullJournalName,
			Year:      publicationYear(doc.PubDate),
			StudyType: ClassifyStudyType(doc.Title),
			URL:       fmt.Sprintf(pubmedArticleURL, id),
		})
	}
	return hits, nil
}

func (b *PubMedBackend) searchIDs(ctx context.Context, q Query) ([]string, error) {
	params := b.params()
	params.Set("term", buildPubMedTerm(q))
	params.Set("retmax", fmt.Sprintf("%d", pubmedMaxResults))

	var sr pubmedSearchResponse
	if err := httputil.GetJSON(ctx, b.Client, "PubMed esearch", pubmedSearchURL, params, b.UserAgent, &sr); err != nil {
		return nil, err
	}

	ids := sr.ESearchResult.IDList
	if len(ids) > pubmedMaxResults {
		ids = ids[:pubmedMaxResults]
	}
	return ids, nil
}

// fetchSummaries returns the esummary result object keyed by PMID. The
// object also carries a "uids" array, which callers never look up.
func (b *PubMedBackend) fetchSummaries(ctx context.Context, ids []string) (map[string]json.RawMessage, error) {
	params := b.params()
	params.Set("id", strings.Join(ids, ","))

	var sr pubmedSummaryResponse
	if err := httputil.GetJSON(ctx, b.Client, "PubMed esummary", pubmedSummaryURL, params, b.UserAgent, &sr); err != nil {
		return nil, err
	}
	return sr.Result, nil
}

func (b *PubMedBackend) params() url.Values {
	params := url.Values{
		"db":      {"pubmed"},
		"retmode": {"json"},
	}
	if b.APIKey != "" {
		params.Set("api_key", b.APIKey)
	}
	if b.Email != "" {
		params.Set("email", b.Email)
		params.Set("tool", pubmedTool)
	}
	return params
}

// buildPubMedTerm matches the drug against title/abstract, the condition
// (when present) against MeSH terms, and restricts publication types.
func buildPubMedTerm(q Query) string {
	clauses := []string{fmt.Sprintf(`"%s"[Title/Abstract]`, q.Drug)}
	if q.Condition != "" {
		clauses = append(clauses, fmt.Sprintf(`"%s"[MeSH Terms]`, q.Condition))
	}

	pubTypes := make([]string, len(pubmedPublicationTypes))
	for i, pt := range pubmedPublicationTypes {
		pubTypes[i] = fmt.Sprintf(`"%s"[Publication Type]`, pt)
	}
	clauses = append(clauses, "("+strings.Join(pubTypes, " OR ")+")")

	return strings.Join(clauses, " AND ")
}

// condenseAuthors joins the display names of the first three authors.
func condenseAuthors(authors []pubmedAuthor) string {
	if len(authors) > pubmedMaxAuthors {
		authors = authors[:pubmedMaxAuthors]
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// publicationYear returns the first whitespace-delimited token of a PubMed
// pubdate such as "2021 Mar 15".
func publicationYear(pubDate string) string {
	fields := strings.Fields(pubDate)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// E-utilities JSON structures.
type pubmedSearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedSummary struct {
	UID             string         `json:"uid"`
	Title           string         `json:"title"`
	Authors         []pubmedAuthor `json:"authors"`
	FullJournalName string         `json:"fulljournalname"`
	PubDate         string         `json:"pubdate"`
}

type pubmedAuthor struct {
	Name     string `json:"name"`
	AuthType string `json:"authtype"`
}
