package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/geomath"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	return &Client{
		BaseURL:    server.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}, server
}

func TestRouteDecodesGeometryAndDistance(t *testing.T) {
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/route/v1/driving/")
		assert.Equal(t, "full", r.URL.Query().Get("overview"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"geometry": {"coordinates": [[-0.1, 51.5], [-0.105, 51.505], [-0.11, 51.51]]},
				"distance": 1234.5
			}]
		}`))
	})
	defer server.Close()

	route, err := client.Route(context.Background(), []geomath.Point{
		{Longitude: -0.1, Latitude: 51.5},
		{Longitude: -0.11, Latitude: 51.51},
	})

	require.NoError(t, err)
	assert.Equal(t, 1234.5, route.Distance)
	require.Len(t, route.Geometry, 3)
	assert.Equal(t, geomath.Point{Longitude: -0.105, Latitude: 51.505}, route.Geometry[1])
}

func TestRouteErrorCodeIsNotRetried(t *testing.T) {
	requests := 0
	client, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	})
	defer server.Close()

	_, err := client.Route(context.Background(), []geomath.Point{
		{Longitude: -0.1, Latitude: 51.5},
		{Longitude: -0.11, Latitude: 51.51},
	})

	assert.Error(t, err)
	assert.Equal(t, 1, requests)
}

func TestRouteRequiresTwoPoints(t *testing.T) {
	client := &Client{BaseURL: "http://unused", HTTPClient: http.DefaultClient}

	_, err := client.Route(context.Background(), []geomath.Point{{Longitude: -0.1, Latitude: 51.5}})
	assert.Error(t, err)
}
