package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org/search"

// Geocoder resolves a free-text location to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, location string) (lat, lon float64, err error)
}

type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

type GeocoderOption func(*NominatimClient)

func WithGeocoderBaseURL(baseURL string) GeocoderOption {
	return func(c *NominatimClient) {
		c.baseURL = baseURL
	}
}

// NewGeocoder creates a Nominatim client. The user agent identifies the
// deployment as required by the Nominatim usage policy.
func NewGeocoder(userAgent string, opts ...GeocoderOption) *NominatimClient {
	c := &NominatimClient{
		baseURL:   nominatimBaseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *NominatimClient) Geocode(ctx context.Context, location string) (float64, float64, error) {
	// Location strings from trial records separate fields with pipes
	query := strings.ReplaceAll(strings.TrimSpace(location), "|", ",")

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "failed to create geocode request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "failed to send geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, goerr.New("geocoder returned error", goerr.V("status", resp.StatusCode))
	}

	var places []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return 0, 0, goerr.Wrap(err, "failed to decode geocode response")
	}
	if len(places) == 0 {
		return 0, 0, goerr.New("no geocode result", goerr.V("location", query))
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "invalid latitude", goerr.V("lat", places[0].Lat))
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return 0, 0, goerr.Wrap(err, "invalid longitude", goerr.V("lon", places[0].Lon))
	}

	return lat, lon, nil
}

// StaticMapURL builds an OpenStreetMap tile image URL for the report
func StaticMapURL(lat, lon float64) string {
	return fmt.Sprintf("https://tile.openstreetmap.de/%f,%f,10/600x300.png", lat, lon)
}
