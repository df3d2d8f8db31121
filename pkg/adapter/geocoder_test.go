package adapter_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/medmatch/medmatch/pkg/adapter"
)

func TestGeocode(t *testing.T) {
	var receivedQuery, receivedAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.Query().Get("q")
		receivedAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `[{"lat": "42.3601", "lon": "-71.0589"}]`)
	}))
	defer server.Close()

	geocoder := adapter.NewGeocoder("medmatch-test/1.0", adapter.WithGeocoderBaseURL(server.URL))
	lat, lon, err := geocoder.Geocode(context.Background(), "Boston|MA|USA")
	gt.NoError(t, err)
	gt.Equal(t, lat, 42.3601)
	gt.Equal(t, lon, -71.0589)

	// Pipe-separated location fields become a comma query
	gt.Equal(t, receivedQuery, "Boston,MA,USA")
	gt.Equal(t, receivedAgent, "medmatch-test/1.0")
}

func TestGeocodeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	geocoder := adapter.NewGeocoder("medmatch-test/1.0", adapter.WithGeocoderBaseURL(server.URL))
	_, _, err := geocoder.Geocode(context.Background(), "Nowhere")
	gt.Error(t, err)
}

func TestGeocodeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	geocoder := adapter.NewGeocoder("medmatch-test/1.0", adapter.WithGeocoderBaseURL(server.URL))
	_, _, err := geocoder.Geocode(context.Background(), "Boston")
	gt.Error(t, err)
}

func TestStaticMapURL(t *testing.T) {
	url := adapter.StaticMapURL(42.3601, -71.0589)
	gt.S(t, url).Contains("tile.openstreetmap.de")
	gt.S(t, url).Contains("42.360100,-71.058900")
}
