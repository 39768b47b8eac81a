// Package routing is the client for the OSRM routing service, used to fill
// in road-following track geometry when a document carries none of its own.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/config"
	"github.com/timetabler/timetabler/pkg/geomath"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: config.Config.Routing.BaseURL,
		HTTPClient: &http.Client{
			Timeout: config.Config.Routing.Timeout,
		},
	}
}

// Route is a road-following geometry with its total length in metres.
type Route struct {
	Geometry []geomath.Point
	Distance float64
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Route requests a driving route through the given points in order.
func (c *Client) Route(ctx context.Context, points []geomath.Point) (*Route, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least two points, got %d", len(points))
	}

	var coords strings.Builder
	for i, point := range points {
		if i > 0 {
			coords.WriteByte(';')
		}
		coords.WriteString(strconv.FormatFloat(point.Longitude, 'f', 6, 64))
		coords.WriteByte(',')
		coords.WriteString(strconv.FormatFloat(point.Latitude, 'f', 6, 64))
	}

	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson", c.BaseURL, coords.String())

	var route *Route

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("routing service returned %s", resp.Status)
		}

		var decoded osrmResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return err
		}

		if !strings.EqualFold(decoded.Code, "ok") || len(decoded.Routes) == 0 {
			return backoff.Permanent(fmt.Errorf("routing service returned code %q", decoded.Code))
		}

		best := decoded.Routes[0]
		geometry := make([]geomath.Point, 0, len(best.Geometry.Coordinates))
		for _, coordinate := range best.Geometry.Coordinates {
			if len(coordinate) < 2 {
				continue
			}
			geometry = append(geometry, geomath.Point{Longitude: coordinate[0], Latitude: coordinate[1]})
		}

		route = &Route{Geometry: geometry, Distance: best.Distance}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retryIn", next).Msg("Routing request failed")
	})
	if err != nil {
		return nil, err
	}

	return route, nil
}
