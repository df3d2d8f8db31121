// Package pubmed searches NCBI PubMed for literature relevant to a query and
// scores each hit by keyword occurrence in its title.
package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medmatch/medmatch/pkg/lookup"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

type pubmed struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*pubmed)

// WithBaseURL overrides the E-utilities endpoint, mainly for tests
func WithBaseURL(baseURL string) Option {
	return func(x *pubmed) {
		x.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates the PubMed lookup
func New(opts ...Option) lookup.Lookup {
	x := &pubmed{
		baseURL:    defaultBaseURL,
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *pubmed) Spec() *lookup.Spec {
	return &lookup.Spec{
		Name:        "search_pubmed",
		Description: "Search PubMed for articles on a query.",
		Parameters: []lookup.ParamSpec{
			{Name: "query", Type: "string", Description: "Search query.", Required: true},
			{Name: "num_results", Type: "integer", Description: "Number of results.", Default: 5},
		},
	}
}

func (x *pubmed) Execute(ctx context.Context, params lookup.Params) lookup.Result {
	query := params.String("query", "")
	numResults := params.Int("num_results", 5)

	ids, err := x.search(ctx, query, numResults)
	if err != nil {
		return lookup.Errorf("PubMed search failed: %s", err)
	}

	summaries := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		title, err := x.summary(ctx, id)
		if err != nil {
			// A single bad summary does not fail the whole lookup
			continue
		}

		// Relevance signal consumed by the ranking turn
		relevance := strings.Count(strings.ToLower(title), strings.ToLower(query))
		summaries = append(summaries, map[string]any{
			"id":        id,
			"title":     title,
			"relevance": relevance,
		})
	}

	return lookup.Result{"results": summaries}
}

func (x *pubmed) search(ctx context.Context, query string, retmax int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", fmt.Sprintf("%d", retmax))
	params.Set("retmode", "json")

	var data struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"/esearch.fcgi?"+params.Encode(), &data); err != nil {
		return nil, err
	}

	return data.ESearchResult.IDList, nil
}

func (x *pubmed) summary(ctx context.Context, id string) (string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", id)
	params.Set("retmode", "json")

	var data struct {
		Result map[string]struct {
			Title string `json:"title"`
		} `json:"result"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"/esummary.fcgi?"+params.Encode(), &data); err != nil {
		return "", err
	}

	entry, ok := data.Result[id]
	if !ok || entry.Title == "" {
		return "No title", nil
	}
	return entry.Title, nil
}
