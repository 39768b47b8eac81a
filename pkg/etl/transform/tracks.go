package transform

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/geomath"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/routing"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
)

// StopPair is one adjacent (from, to) stop pair of a pattern's sequence.
type StopPair struct {
	FromAtcoCode string
	ToAtcoCode   string
}

// TrackCandidate is a track row the loader may need to insert: the loader
// queries which pairs already exist and only inserts the missing ones.
type TrackCandidate struct {
	Pair     StopPair
	Geometry *transmodel.LineString
	Distance *int

	points []geomath.Point
}

// PatternGeometry is the pattern-level line with its ordered pairs and the
// per-pair track candidates.
type PatternGeometry struct {
	Line     *transmodel.LineString
	Distance *int

	// Pairs in sequence order, including repeats on circular patterns
	Pairs      []StopPair
	Candidates []TrackCandidate
}

// RouteLinkIndex maps a stop pair onto the document route link that carries
// its mapping points.
type RouteLinkIndex map[StopPair]*txc.RouteLink

// BuildRouteLinkIndex indexes every route link in the document by stop pair.
// Later links for the same pair win; producers repeat identical geometry.
func BuildRouteLinkIndex(doc *txc.Document) RouteLinkIndex {
	index := RouteLinkIndex{}

	for _, section := range doc.RouteSections {
		for i := range section.RouteLinks {
			link := &section.RouteLinks[i]
			if link.FromStop == "" || link.ToStop == "" {
				continue
			}

			index[StopPair{FromAtcoCode: link.FromStop, ToAtcoCode: link.ToStop}] = link
		}
	}

	return index
}

// BuildPatternGeometry derives the line-string, distance and track candidates
// for one canonical pattern.
//
// When every adjacent pair has explicit mapping geometry of three or more
// points, the pattern line is the per-pair lines merged with snapping and the
// distance is the sum of track lengths. Otherwise the routing service fills
// in a road-following line; if that also fails, the line degrades to the stop
// coordinates and the distance stays null.
func BuildPatternGeometry(
	ctx context.Context,
	meta *ServicePatternMeta,
	stops map[string]*refdata.StopRecord,
	routeLinks RouteLinkIndex,
	router *routing.Client,
) *PatternGeometry {
	geometry := &PatternGeometry{}

	seen := map[StopPair]bool{}
	for i := 1; i < len(meta.StopSequence); i++ {
		pair := StopPair{
			FromAtcoCode: meta.StopSequence[i-1],
			ToAtcoCode:   meta.StopSequence[i],
		}

		geometry.Pairs = append(geometry.Pairs, pair)

		if seen[pair] {
			continue
		}
		seen[pair] = true

		geometry.Candidates = append(geometry.Candidates, buildTrackCandidate(pair, routeLinks))
	}

	complete := len(geometry.Candidates) > 0
	for _, candidate := range geometry.Candidates {
		if len(candidate.points) < 3 {
			complete = false
			break
		}
	}

	if complete {
		byPair := make(map[StopPair][]geomath.Point, len(geometry.Candidates))
		total := 0
		for _, candidate := range geometry.Candidates {
			byPair[candidate.Pair] = candidate.points
			total += *candidate.Distance
		}

		var segments [][]geomath.Point
		for _, pair := range geometry.Pairs {
			segments = append(segments, byPair[pair])
		}

		geometry.Line = transmodel.NewLineString(geomath.MergeLines(segments))
		geometry.Distance = &total

		return geometry
	}

	stopCoordinates := patternStopCoordinates(meta, stops)
	if len(stopCoordinates) < 2 {
		log.Warn().
			Str("servicePattern", meta.ID).
			Msg("Pattern has fewer than two locatable stops, leaving geometry null")
		return geometry
	}

	if router != nil {
		route, err := router.Route(ctx, stopCoordinates)
		if err == nil {
			distance := int(math.Round(route.Distance))
			geometry.Line = transmodel.NewLineString(route.Geometry)
			geometry.Distance = &distance

			return geometry
		}

		log.Warn().
			Err(err).
			Str("servicePattern", meta.ID).
			Msg("Routing fallback failed, using stop coordinates without a distance")
	}

	geometry.Line = transmodel.NewLineString(stopCoordinates)

	return geometry
}

// buildTrackCandidate extracts mapping-point geometry for one pair. Fewer
// than two mapping points means the candidate carries no geometry and the
// loader inserts a bare pair row.
func buildTrackCandidate(pair StopPair, routeLinks RouteLinkIndex) TrackCandidate {
	candidate := TrackCandidate{Pair: pair}

	link := routeLinks[pair]
	if link == nil {
		return candidate
	}

	var points []geomath.Point
	for i := range link.Track {
		lon, lat, ok := link.Track[i].LonLat()
		if !ok {
			continue
		}

		points = append(points, geomath.Point{Longitude: lon, Latitude: lat})
	}

	if len(points) < 2 {
		return candidate
	}

	distance := int(math.Round(link.Distance))
	if distance <= 0 {
		distance = int(math.Round(geomath.LineLength(points)))
	}

	candidate.points = points
	candidate.Geometry = transmodel.NewLineString(points)
	candidate.Distance = &distance

	return candidate
}

// patternStopCoordinates composes the fallback line from the resolved stops
// in sequence order, skipping placeholders.
func patternStopCoordinates(meta *ServicePatternMeta, stops map[string]*refdata.StopRecord) []geomath.Point {
	var points []geomath.Point

	for _, ref := range meta.StopSequence {
		record := stops[ref]
		if record == nil || record.Placeholder {
			continue
		}

		points = append(points, geomath.Point{Longitude: record.Longitude, Latitude: record.Latitude})
	}

	return points
}
