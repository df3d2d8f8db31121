package rxnorm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/lookup/rxnorm"
)

func TestExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/rxcui.json"):
			gt.Equal(t, r.URL.Query().Get("name"), "metformin")
			fmt.Fprint(w, `{"idGroup": {"rxnormId": ["6809"]}}`)
		case strings.Contains(r.URL.Path, "/rxcui/6809/properties.json"):
			fmt.Fprint(w, `{"properties": {"name": "metformin", "rxcui": "6809", "tty": "IN"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	l := rxnorm.New(rxnorm.WithBaseURL(server.URL))
	result := l.Execute(context.Background(), lookup.Params{"drug_name": "metformin"})
	gt.False(t, result.IsError())
	gt.Equal(t, result["rxcui"], "6809")

	// No therapeuticClasses in properties: falls back to the single Unknown class
	gt.Equal(t, result["therapeutic_classes_count"], 1)

	properties, ok := result["properties"].(map[string]any)
	gt.True(t, ok)
	gt.Equal(t, properties["name"], "metformin")
}

func TestExecuteNoRxcui(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"idGroup": {}}`)
	}))
	defer server.Close()

	l := rxnorm.New(rxnorm.WithBaseURL(server.URL))
	result := l.Execute(context.Background(), lookup.Params{"drug_name": "notadrug"})
	gt.True(t, result.IsError())
	gt.Equal(t, result.ErrorMessage(), "No RxCUI found")
}

func TestExecuteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	l := rxnorm.New(rxnorm.WithBaseURL(server.URL))
	result := l.Execute(context.Background(), lookup.Params{"drug_name": "metformin"})
	gt.True(t, result.IsError())
	gt.S(t, result.ErrorMessage()).Contains("RxNorm search failed:")
}
