// Package rxnorm maps drug names to RxNorm concept identifiers and counts
// their therapeutic classes.
package rxnorm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/medmatch/medmatch/pkg/lookup"
)

const defaultBaseURL = "https://rxnav.nlm.nih.gov/REST"

type rxnorm struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*rxnorm)

// WithBaseURL overrides the RxNav endpoint, mainly for tests
func WithBaseURL(baseURL string) Option {
	return func(x *rxnorm) {
		x.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// New creates the RxNorm lookup
func New(opts ...Option) lookup.Lookup {
	x := &rxnorm{
		baseURL:    defaultBaseURL,
		httpClient: lookup.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *rxnorm) Spec() *lookup.Spec {
	return &lookup.Spec{
		Name:        "search_rxnorm",
		Description: "Map drug to RxNorm codes and therapeutic classes.",
		Parameters: []lookup.ParamSpec{
			{Name: "drug_name", Type: "string", Description: "Drug name to map.", Required: true},
		},
	}
}

func (x *rxnorm) Execute(ctx context.Context, params lookup.Params) lookup.Result {
	drugName := params.String("drug_name", "")

	rxcui, err := x.findRxcui(ctx, drugName)
	if err != nil {
		return lookup.Errorf("RxNorm search failed: %s", err)
	}
	if rxcui == "" {
		return lookup.Errorf("No RxCUI found")
	}

	properties, err := x.properties(ctx, rxcui)
	if err != nil {
		return lookup.Errorf("RxNorm search failed: %s", err)
	}

	classes, _ := properties["therapeuticClasses"].([]any)
	if len(classes) == 0 {
		classes = []any{"Unknown"}
	}

	return lookup.Result{
		"rxcui":                     rxcui,
		"properties":                properties,
		"therapeutic_classes_count": len(classes),
	}
}

func (x *rxnorm) findRxcui(ctx context.Context, drugName string) (string, error) {
	params := url.Values{}
	params.Set("name", drugName)

	var data struct {
		IDGroup struct {
			RxnormID []string `json:"rxnormId"`
		} `json:"idGroup"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"/rxcui.json?"+params.Encode(), &data); err != nil {
		return "", err
	}

	if len(data.IDGroup.RxnormID) == 0 {
		return "", nil
	}
	return data.IDGroup.RxnormID[0], nil
}

func (x *rxnorm) properties(ctx context.Context, rxcui string) (map[string]any, error) {
	var data struct {
		Properties map[string]any `json:"properties"`
	}
	if err := lookup.GetJSON(ctx, x.httpClient, x.baseURL+"/rxcui/"+url.PathEscape(rxcui)+"/properties.json", &data); err != nil {
		return nil, err
	}
	return data.Properties, nil
}
