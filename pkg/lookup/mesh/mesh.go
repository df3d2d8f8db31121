// Package mesh links medical terms to MeSH controlled-vocabulary headings
// through the NLM SPARQL endpoint.
package mesh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medmatch/medmatch/pkg/lookup"
)

const defaultBaseURL = "https://id.nlm.nih.gov/mesh/sparql"

const sparqlTemplate = `
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?mesh ?label
WHERE {
    ?mesh rdfs:label ?label .
    FILTER (regex(?label, "%s", "i"))
}
LIMIT 5
`

type mesh struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*mesh)

// WithBaseURL overrides the SPARQL endpoint, mainly for tests
func WithBaseURL(baseURL string) Option {
	return func(x *mesh) {
		x.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates the MeSH lookup
func New(opts ...Option) lookup.Lookup {
	x := &mesh{
		baseURL:    defaultBaseURL,
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *mesh) Spec() *lookup.Spec {
	return &lookup.Spec{
		Name:        "search_mesh",
		Description: "Link term to MeSH headings and count matches.",
		Parameters: []lookup.ParamSpec{
			{Name: "term", Type: "string", Description: "Medical term to search.", Required: true},
		},
	}
}

func (x *mesh) Execute(ctx context.Context, params lookup.Params) lookup.Result {
	term := params.String("term", "")

	// The term is interpolated into a regex filter; strip quotes so it
	// cannot break out of the SPARQL string literal.
	sanitized := strings.NewReplacer(`"`, "", `\`, "").Replace(term)

	query := url.Values{}
	query.Set("query", fmt.Sprintf(sparqlTemplate, sanitized))
	query.Set("format", "json")

	var data struct {
		Results struct {
			Bindings []struct {
				Mesh struct {
					Value string `json:"value"`
				} `json:"mesh"`
				Label struct {
					Value string `json:"value"`
				} `json:"label"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"?"+query.Encode(), &data); err != nil {
		return lookup.Errorf("MeSH search failed: %s", err)
	}

	terms := make([]map[string]any, 0, len(data.Results.Bindings))
	for _, b := range data.Results.Bindings {
		terms = append(terms, map[string]any{
			"uri":   b.Mesh.Value,
			"label": b.Label.Value,
		})
	}

	return lookup.Result{
		"terms":       terms,
		"match_count": len(terms),
	}
}
