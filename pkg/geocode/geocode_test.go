package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bostonResponse = `{
  "info": {"statuscode": 0, "messages": []},
  "results": [{
    "providedLocation": {"location": "233 Bay State Rd Boston MA 02215"},
    "locations": [{
      "street": "233 Bay State Rd",
      "adminArea5": "Boston",
      "adminArea3": "MA",
      "adminArea1": "US",
      "postalCode": "02215",
      "latLng": {"lat": 42.350846, "lng": -71.103585}
    }]
  }]
}`

func TestMapQuest_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))
		assert.Equal(t, "233 Bay State Rd Boston MA 02215", r.URL.Query().Get("location"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bostonResponse))
	}))
	defer srv.Close()

	g := NewMapQuest("k3y", srv.URL, srv.Client())
	res, err := g.Geocode(context.Background(), " 233 Bay State Rd Boston MA 02215 ")
	require.NoError(t, err)
	assert.InDelta(t, 42.350846, res.Latitude, 1e-9)
	assert.InDelta(t, -71.103585, res.Longitude, 1e-9)
	assert.Equal(t, "Boston", res.City)
	assert.Equal(t, "MA", res.State)
	assert.Equal(t, "02215", res.Zipcode)
	assert.Equal(t, "US", res.Country)
	assert.Equal(t, "233 Bay State Rd, Boston, MA 02215, US", res.FormattedAddress)
}

func TestMapQuest_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"info":{"statuscode":0},"results":[{"locations":[]}]}`))
	}))
	defer srv.Close()

	_, err := NewMapQuest("k", srv.URL, nil).Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = NewMapQuest("k", srv.URL, nil).Geocode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestMapQuest_ProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "bad" {
			_, _ = w.Write([]byte(`{"info":{"statuscode":403,"messages":["invalid key"]},"results":[]}`))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewMapQuest("bad", srv.URL, nil).Geocode(context.Background(), "Boston")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
	assert.NotErrorIs(t, err, ErrNoMatch)

	_, err = NewMapQuest("k", srv.URL, nil).Geocode(context.Background(), "Boston")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Geocode(context.Background(), "Boston")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
