// Package geocode turns free-form addresses and zipcodes into coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMapQuestURL is the MapQuest geocoding v1 address endpoint.
const DefaultMapQuestURL = "https://www.mapquestapi.com/geocoding/v1/address"

var (
	// ErrNoMatch means the provider answered but found nothing for the input.
	ErrNoMatch = errors.New("geocode: no match")
	// ErrNotConfigured is returned by Disabled.
	ErrNotConfigured = errors.New("geocode: no provider configured")
)

// Result is the best match for an address.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Street           string
	City             string
	State            string
	Zipcode          string
	Country          string
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// MapQuest queries the MapQuest geocoding API.
type MapQuest struct {
	key     string
	baseURL string
	client  *http.Client
}

// NewMapQuest returns a client for key. An empty baseURL selects the public
// endpoint; a nil client gets a 10s timeout.
func NewMapQuest(key, baseURL string, client *http.Client) *MapQuest {
	if baseURL == "" {
		baseURL = DefaultMapQuestURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &MapQuest{key: key, baseURL: baseURL, client: client}
}

type mqResponse struct {
	Info struct {
		StatusCode int      `json:"statuscode"`
		Messages   []string `json:"messages"`
	} `json:"info"`
	Results []struct {
		Locations []mqLocation `json:"locations"`
	} `json:"results"`
}

type mqLocation struct {
	Street     string `json:"street"`
	AdminArea5 string `json:"adminArea5"` // city
	AdminArea3 string `json:"adminArea3"` // state
	AdminArea1 string `json:"adminArea1"` // country
	PostalCode string `json:"postalCode"`
	LatLng     struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"latLng"`
}

func (m *MapQuest) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNoMatch
	}
	q := url.Values{}
	q.Set("key", m.key)
	q.Set("location", address)
	q.Set("maxResults", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: provider returned %s", resp.Status)
	}
	var body mqResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode decode: %w", err)
	}
	if body.Info.StatusCode != 0 {
		return nil, fmt.Errorf("geocode: provider status %d: %s", body.Info.StatusCode, strings.Join(body.Info.Messages, "; "))
	}
	if len(body.Results) == 0 || len(body.Results[0].Locations) == 0 {
		return nil, ErrNoMatch
	}
	loc := body.Results[0].Locations[0]
	return &Result{
		Latitude:         loc.LatLng.Lat,
		Longitude:        loc.LatLng.Lng,
		FormattedAddress: formatAddress(loc),
		Street:           loc.Street,
		City:             loc.AdminArea5,
		State:            loc.AdminArea3,
		Zipcode:          loc.PostalCode,
		Country:          loc.AdminArea1,
	}, nil
}

func formatAddress(l mqLocation) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Street, l.AdminArea5, strings.TrimSpace(l.AdminArea3 + " " + l.PostalCode), l.AdminArea1} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Disabled fails every lookup; used when no API key is configured.
type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (*Result, error) { return nil, ErrNotConfigured }
