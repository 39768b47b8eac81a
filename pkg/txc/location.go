package txc

import (
	"github.com/paulcager/osgridref"
)

// Location is a TXC coordinate, either WGS84 or an OS grid reference.
// Some producers nest the WGS84 value under a Translation element.
type Location struct {
	LocationInner

	Translation LocationInner
}

type LocationInner struct {
	Longitude float64
	Latitude  float64

	GridType string
	Easting  string
	Northing string
}

// LonLat returns the WGS84 coordinate, converting from the OS grid when the
// producer only supplied Easting/Northing. ok is false when neither form is
// usable.
func (l *Location) LonLat() (float64, float64, bool) {
	candidates := []LocationInner{l.LocationInner, l.Translation}

	for _, inner := range candidates {
		if inner.Longitude != 0 || inner.Latitude != 0 {
			return inner.Longitude, inner.Latitude, true
		}
	}

	for _, inner := range candidates {
		if inner.Easting != "" && inner.Northing != "" {
			gridRef, err := osgridref.ParseOsGridRef(inner.Easting + "," + inner.Northing)
			if err != nil {
				continue
			}

			lat, lon := gridRef.ToLatLon()
			return lon, lat, true
		}
	}

	return 0, 0, false
}
