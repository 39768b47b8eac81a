// Package geomath implements the small amount of WGS84 geometry the track
// builder needs: geodesic distance in metres and line-string stitching.
package geomath

import "math"

type Point struct {
	Longitude float64
	Latitude  float64
}

// WGS84 ellipsoid
const (
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	semiMinorAxis = semiMajorAxis * (1 - flattening)
)

// GeodesicDistance returns the distance between two points in metres on the
// WGS84 ellipsoid (Vincenty inverse). Falls back to the spherical great
// circle distance when the iteration fails to converge, which only happens
// for nearly antipodal points that never occur between adjacent bus stops.
func GeodesicDistance(a Point, b Point) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	u1 := math.Atan((1 - flattening) * math.Tan(phi1))
	u2 := math.Atan((1 - flattening) * math.Tan(phi2))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := deltaLon
	var sinSigma, cosSigma, sigma, sinAlpha, cosSqAlpha, cos2SigmaM float64

	for iteration := 0; iteration < 200; iteration++ {
		sinLambda, cosLambda := math.Sincos(lambda)

		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		if sinSigma == 0 {
			return 0 // coincident points
		}

		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha = cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha

		if cosSqAlpha == 0 {
			cos2SigmaM = 0 // equatorial line
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}

		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = deltaLon + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-lambdaPrev) < 1e-12 {
			uSq := cosSqAlpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) / (semiMinorAxis * semiMinorAxis)
			aCoeff := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			bCoeff := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := bCoeff * sinSigma * (cos2SigmaM + bCoeff/4*
				(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
					bCoeff/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

			return semiMinorAxis * aCoeff * (sigma - deltaSigma)
		}
	}

	return sphericalDistance(a, b)
}

func sphericalDistance(a Point, b Point) float64 {
	const earthRadius = 6371008.8

	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	dPhi := phi2 - phi1
	dLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dPhi/2), 2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)

	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

// LineLength sums the geodesic segment lengths of a line-string.
func LineLength(points []Point) float64 {
	var total float64

	for i := 1; i < len(points); i++ {
		total += GeodesicDistance(points[i-1], points[i])
	}

	return total
}

// MergeLines stitches per-pair line-strings into one pattern-level line. The
// first point of each subsequent segment is snapped onto the last point of
// the merged line so far, regardless of any small positional mismatch between
// the source geometries.
func MergeLines(segments [][]Point) []Point {
	var merged []Point

	for _, segment := range segments {
		if len(segment) == 0 {
			continue
		}

		if len(merged) == 0 {
			merged = append(merged, segment...)
			continue
		}

		// Snap: the segment start becomes the current line end
		merged = append(merged, segment[1:]...)
	}

	return merged
}
