package libs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"storefront/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNominatim(t *testing.T, handler http.HandlerFunc) *NominatimClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNominatimClient(NominatimConfig{
		BaseURL:   srv.URL + "/",
		UserAgent: "EcommerceApp/1.0",
		Language:  "en",
		Timeout:   time.Second,
	})
}

func TestNominatimClient_Reverse(t *testing.T) {
	client := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "-33.9249", q.Get("lat"))
		assert.Equal(t, "18.4241", q.Get("lon"))
		assert.Equal(t, "18", q.Get("zoom"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, "EcommerceApp/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "en", r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "12 Main St, Cape Town",
			"address": {
				"road": "Main St",
				"house_number": "12",
				"city": "Cape Town",
				"postcode": 8001,
				"country": "South Africa",
				"country_code": "za",
				"ISO3166-2-lvl4": ["ignored"]
			}
		}`))
	})

	input, err := client.Reverse(context.Background(), models.Coordinate{Lat: -33.9249, Lng: 18.4241})
	require.NoError(t, err)

	assert.Equal(t, "Main St", input["road"])
	assert.Equal(t, "12", input["house_number"])
	assert.Equal(t, "8001", input["postcode"])
	assert.Equal(t, "za", input["country_code"])
	assert.NotContains(t, input, "ISO3166-2-lvl4")
}

func TestNominatimClient_MissingAddress(t *testing.T) {
	client := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	_, err := client.Reverse(context.Background(), models.Coordinate{Lat: 0, Lng: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Contains(t, err.Error(), "Unable to geocode")
}

func TestNominatimClient_BadStatus(t *testing.T) {
	client := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Reverse(context.Background(), models.Coordinate{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNominatimClient_MalformedBody(t *testing.T) {
	client := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := client.Reverse(context.Background(), models.Coordinate{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode reverse response")
}

func TestNominatimClient_RateLimitRespectsContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"address":{}}`))
	}))
	defer srv.Close()

	client := NewNominatimClient(NominatimConfig{BaseURL: srv.URL, RequestsPerSecond: 0.01})

	_, err := client.Reverse(context.Background(), models.Coordinate{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Reverse(ctx, models.Coordinate{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoder rate limit")
	assert.Equal(t, 1, calls)
}
