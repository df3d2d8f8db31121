// Package openfda fetches adverse-event reports for a drug from the OpenFDA
// API and aggregates the distinct reactions observed.
package openfda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/medmatch/medmatch/pkg/lookup"
)

const defaultBaseURL = "https://api.fda.gov/drug/event.json"

type openfda struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*openfda)

// WithBaseURL overrides the OpenFDA endpoint, mainly for tests
func WithBaseURL(baseURL string) Option {
	return func(x *openfda) {
		x.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates the OpenFDA adverse-event lookup
func New(opts ...Option) lookup.Lookup {
	x := &openfda{
		baseURL:    defaultBaseURL,
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *openfda) Spec() *lookup.Spec {
	return &lookup.Spec{
		Name:        "search_openfda",
		Description: "Fetch OpenFDA adverse events and stats for a drug.",
		Parameters: []lookup.ParamSpec{
			{Name: "drug_name", Type: "string", Description: "Drug name for adverse events.", Required: true},
			{Name: "limit", Type: "integer", Description: "Number of events.", Default: 5},
		},
	}
}

func (x *openfda) Execute(ctx context.Context, params lookup.Params) lookup.Result {
	drugName := params.String("drug_name", "")
	limit := params.Int("limit", 5)

	query := url.Values{}
	query.Set("search", fmt.Sprintf(`patient.drug.openfda.brand_name:"%s"`, drugName))
	query.Set("limit", fmt.Sprintf("%d", limit))

	var data struct {
		Meta struct {
			Results struct {
				Total int `json:"total"`
			} `json:"results"`
		} `json:"meta"`
		Results []map[string]any `json:"results"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"?"+query.Encode(), &data); err != nil {
		return lookup.Errorf("OpenFDA search failed: %s", err)
	}
	if data.Meta.Results.Total == 0 {
		return lookup.Errorf("No OpenFDA data found")
	}

	return lookup.Result{
		"events":                 data.Results,
		"unique_reactions_count": countUniqueReactions(data.Results),
	}
}

// countUniqueReactions counts distinct MedDRA reaction terms across events
func countUniqueReactions(events []map[string]any) int {
	unique := make(map[string]struct{})
	for _, event := range events {
		patient, _ := event["patient"].(map[string]any)
		reactions, _ := patient["reaction"].([]any)
		for _, r := range reactions {
			reaction, _ := r.(map[string]any)
			if term, ok := reaction["reactionmeddrapt"].(string); ok && term != "" {
				unique[term] = struct{}{}
			}
		}
	}
	return len(unique)
}
