package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		NominatimURL: srv.URL,
		OSRMURL:      srv.URL,
		Timeout:      time.Second,
		UserAgent:    "raftaar-test",
	}), srv
}

func TestParsePoint(t *testing.T) {
	p, ok := ParsePoint(" 12.97,77.59 ")
	require.True(t, ok)
	assert.Equal(t, geo.Point{Lat: 12.97, Lng: 77.59}, p)

	p, ok = ParsePoint("-33,151.2")
	require.True(t, ok)
	assert.Equal(t, -33.0, p.Lat)

	for _, in := range []string{"MG Road, Bengaluru", "12.97, 77.59", "12.97", "a,b"} {
		_, ok := ParsePoint(in)
		assert.False(t, ok, in)
	}
}

func TestResolveAddress(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "MG Road", r.URL.Query().Get("q"))
		assert.Equal(t, "raftaar-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"lat":"12.9756","lon":"77.6050","display_name":"MG Road, Bengaluru"}]`))
	})

	place, err := c.ResolveAddress(context.Background(), " MG Road ")
	require.NoError(t, err)
	assert.Equal(t, 12.9756, place.Ltd)
	assert.Equal(t, 77.6050, place.Lng)
	assert.Equal(t, "MG Road, Bengaluru", place.FormattedAddress)
}

func TestResolveAddress_NoMatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.ResolveAddress(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCoordinates_ReverseForPointInput(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "12.97", r.URL.Query().Get("lat"))
		assert.Equal(t, "77.59", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"display_name":"Cubbon Park"}`))
	})

	place, err := c.Coordinates(context.Background(), "12.97,77.59")
	require.NoError(t, err)
	assert.Equal(t, "Cubbon Park", place.FormattedAddress)
	assert.Equal(t, 12.97, place.Ltd)
}

func TestDistanceTime(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`[{"lat":"12.9352","lon":"77.6245","display_name":"Koramangala"}]`))
		default:
			assert.Equal(t, "/route/v1/driving/77.59,12.97;77.6245,12.9352", r.URL.Path)
			assert.Equal(t, "false", r.URL.Query().Get("overview"))
			w.Write([]byte(`{"code":"Ok","routes":[{"distance":6120.4,"duration":902.1}]}`))
		}
	})

	route, err := c.DistanceTime(context.Background(), "12.97,77.59", "Koramangala")
	require.NoError(t, err)
	assert.Equal(t, 6120.4, route.Distance)
	assert.Equal(t, 902.1, route.Duration)

	_, err = c.DistanceTime(context.Background(), "", "Koramangala")
	assert.ErrorIs(t, err, ErrEndsRequired)
}

func TestRoute_NoRoute(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	})

	_, err := c.RouteDistanceDuration(context.Background(), geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 2, Lng: 2})
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestSuggestions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"display_name":"Indiranagar"},{"display_name":"Indira Nagar, Lucknow"}]`))
	})

	got, err := c.Suggestions(context.Background(), "indira")
	require.NoError(t, err)
	assert.Equal(t, []string{"Indiranagar", "Indira Nagar, Lucknow"}, got)

	_, err = c.Suggestions(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInputRequired)
}

func TestUpstreamErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Suggestions(context.Background(), "x")
	assert.Equal(t, apperr.UpstreamUnavailable, apperr.KindOf(err))

	slow, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	slow.httpClient.Timeout = 50 * time.Millisecond
	_, err = slow.Suggestions(context.Background(), "x")
	assert.Equal(t, apperr.UpstreamTimeout, apperr.KindOf(err))
}
