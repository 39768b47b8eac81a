// Package transform converts a parsed TXC document into the relational
// output rows: canonical service patterns, expanded stop times, operating
// date exceptions and track geometry. Nothing here touches the write side of
// the database; the load package owns persistence.
package transform

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/geomath"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/routing"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"github.com/timetabler/timetabler/pkg/util"
)

type Transformer struct {
	Resolver *refdata.Resolver
	Router   *routing.Client
	Calendar *bankholidays.Calendar

	RevisionID       int
	FileAttributesID *int
	// SupersededTimetable detaches the created services from the file
	// attributes row, leaving the newer timetable as the attached one.
	SupersededTimetable bool
}

// Output is the complete load bundle for one file, in the shape the loader
// persists it.
type Output struct {
	Services []*ServiceOutput
}

type ServiceOutput struct {
	Record             transmodel.Service
	BookingArrangement *transmodel.BookingArrangement
	Patterns           []*PatternOutput
}

type PatternOutput struct {
	Meta     *ServicePatternMeta
	Record   transmodel.ServicePattern
	Geometry *PatternGeometry

	AdminAreaCodes []string
	LocalityIDs    []string

	Journeys []*JourneyOutput
}

type JourneyOutput struct {
	Record  transmodel.VehicleJourney
	Stops   []StopRow
	Profile *ProfileRows
}

// Transform expands frequency journeys, resolves reference data, deduplicates
// patterns and produces the load bundle. Documents containing only flexible
// services legitimately have no standard patterns; ErrNoValidPatterns
// surfaces only when there is nothing at all to load.
func (t *Transformer) Transform(ctx context.Context, doc *txc.Document) (*Output, error) {
	doc.ExpandFrequencies()

	stops, err := t.Resolver.ResolveStops(ctx, doc.StopPointRefs(), refdata.CommonNames(doc))
	if err != nil {
		return nil, err
	}

	activities, err := t.Resolver.StopActivityMap(ctx)
	if err != nil {
		return nil, err
	}

	index, err := BuildPatternIndex(doc)
	if err != nil {
		if !errors.Is(err, ErrNoValidPatterns) || !hasFlexibleServices(doc) {
			return nil, err
		}

		index = &PatternIndex{Patterns: map[string]*ServicePatternMeta{}}
	}

	routeLinks := BuildRouteLinkIndex(doc)
	zones := refdata.FlexibleZones(doc)

	journeysByPattern := map[string][]*txc.VehicleJourney{}
	for _, journey := range doc.VehicleJourneys {
		patternID := index.ByVehicleJourney[journey.VehicleJourneyCode]
		if patternID != "" {
			journeysByPattern[patternID] = append(journeysByPattern[patternID], journey)
		}
	}

	output := &Output{}

	for _, service := range doc.Services {
		serviceOutput := t.buildService(service)

		for _, patternID := range index.Order {
			meta := index.Patterns[patternID]
			if meta.ServiceCode != service.ServiceCode {
				continue
			}

			pattern := t.buildPattern(ctx, doc, service, meta, stops, routeLinks)

			for _, journey := range journeysByPattern[patternID] {
				pattern.Journeys = append(pattern.Journeys,
					t.buildJourney(doc, service, index, meta, journey, stops, activities))
			}

			serviceOutput.Patterns = append(serviceOutput.Patterns, pattern)
		}

		serviceOutput.Patterns = append(serviceOutput.Patterns,
			t.buildFlexiblePatterns(service, stops, zones)...)

		output.Services = append(output.Services, serviceOutput)
	}

	return output, nil
}

func (t *Transformer) buildService(service *txc.Service) *ServiceOutput {
	record := transmodel.Service{
		ServiceCode: service.ServiceCode,
		ServiceType: transmodel.ServiceTypeStandard,
		RevisionID:  t.RevisionID,
	}

	if !t.SupersededTimetable {
		record.TXCFileAttributesID = t.FileAttributesID
	}

	var lineNames []string
	for _, line := range service.Lines {
		lineNames = append(lineNames, line.LineName)
	}
	lineNames = util.RemoveDuplicateStrings(lineNames, []string{})

	if len(lineNames) > 0 {
		record.Name = lineNames[0]
		record.OtherNames = lineNames[1:]
	}

	if start, err := time.Parse(bankholidays.YearMonthDayFormat, service.StartDate); err == nil {
		record.StartDate = start
	}
	if end, err := time.Parse(bankholidays.YearMonthDayFormat, service.EndDate); err == nil {
		record.EndDate = &end
	}

	serviceOutput := &ServiceOutput{Record: record}

	if service.FlexibleService != nil {
		serviceOutput.Record.ServiceType = transmodel.ServiceTypeFlexible
		serviceOutput.BookingArrangement = buildBookingArrangement(service.FlexibleService)
	}

	return serviceOutput
}

// buildBookingArrangement prefers the service-level arrangements, falling
// back to the first journey pattern carrying one.
func buildBookingArrangement(flexible *txc.FlexibleService) *transmodel.BookingArrangement {
	arrangements := flexible.BookingArrangements
	if arrangements == nil {
		for _, pattern := range flexible.FlexibleJourneyPatterns {
			if pattern.BookingArrangements != nil {
				arrangements = pattern.BookingArrangements
				break
			}
		}
	}

	if arrangements == nil {
		return nil
	}

	return &transmodel.BookingArrangement{
		Description: arrangements.Description,
		PhoneNumber: arrangements.Phone,
		Email:       arrangements.Email,
		WebAddress:  arrangements.WebAddress,
	}
}

func (t *Transformer) buildPattern(
	ctx context.Context,
	doc *txc.Document,
	service *txc.Service,
	meta *ServicePatternMeta,
	stops map[string]*refdata.StopRecord,
	routeLinks RouteLinkIndex,
) *PatternOutput {
	geometry := BuildPatternGeometry(ctx, meta, stops, routeLinks, t.Router)

	record := transmodel.ServicePattern{
		ServicePatternID: meta.ID,
		LineName:         lineNameFor(service, meta),
		Geom:             geometry.Line,
		RevisionID:       t.RevisionID,
	}

	if service.StandardService != nil {
		record.Origin = service.StandardService.Origin
		record.Destination = service.StandardService.Destination
	}
	if record.Origin == "" || record.Destination == "" {
		if first := stops[meta.StopSequence[0]]; first != nil && record.Origin == "" {
			record.Origin = first.DisplayName
		}
		if last := stops[meta.StopSequence[len(meta.StopSequence)-1]]; last != nil && record.Destination == "" {
			record.Destination = last.DisplayName
		}
	}

	for _, journeyPatternID := range meta.JourneyPatternIDs {
		if pattern := service.JourneyPattern(journeyPatternID); pattern != nil && pattern.DestinationDisplay != "" {
			record.Description = pattern.DestinationDisplay
			break
		}
	}

	var adminAreas, localities []string
	for _, ref := range meta.StopSequence {
		if record := stops[ref]; record != nil && !record.Placeholder {
			adminAreas = append(adminAreas, record.AdminAreaCode)
			localities = append(localities, record.LocalityID)
		}
	}

	return &PatternOutput{
		Meta:           meta,
		Record:         record,
		Geometry:       geometry,
		AdminAreaCodes: util.RemoveDuplicateStrings(adminAreas, []string{}),
		LocalityIDs:    util.RemoveDuplicateStrings(localities, []string{}),
	}
}

// buildFlexiblePatterns emits one pattern per flexible journey pattern. There
// are no timing links to expand, so the geometry threads the fixed stops and
// the flexible zone outlines instead; the pattern stays drawable even when
// the service is demand responsive.
func (t *Transformer) buildFlexiblePatterns(
	service *txc.Service,
	stops map[string]*refdata.StopRecord,
	zones map[string][]geomath.Point,
) []*PatternOutput {
	if service.FlexibleService == nil {
		return nil
	}

	var patterns []*PatternOutput

	for _, flexiblePattern := range service.FlexibleService.FlexibleJourneyPatterns {
		var sequence []string
		var points []geomath.Point

		for _, usage := range flexiblePattern.StopPointsInSequence {
			sequence = append(sequence, usage.StopPointRef)

			if record := stops[usage.StopPointRef]; record != nil && !record.Placeholder {
				points = append(points, geomath.Point{
					Longitude: record.Longitude,
					Latitude:  record.Latitude,
				})
			}
		}

		for _, usage := range flexiblePattern.FlexibleZones {
			sequence = append(sequence, usage.StopPointRef)
			points = append(points, zones[usage.StopPointRef]...)
		}

		if len(sequence) == 0 {
			log.Warn().
				Str("flexibleJourneyPattern", flexiblePattern.ID).
				Msg("Flexible journey pattern names no stops")
			continue
		}

		record := transmodel.ServicePattern{
			ServicePatternID: CanonicalPatternID(service.ServiceCode, sequence),
			Origin:           service.FlexibleService.Origin,
			Destination:      service.FlexibleService.Destination,
			Geom:             transmodel.NewLineString(points),
			RevisionID:       t.RevisionID,
		}

		if len(service.Lines) > 0 {
			record.LineName = service.Lines[0].LineName
		}

		var adminAreas, localities []string
		for _, ref := range sequence {
			if stop := stops[ref]; stop != nil && !stop.Placeholder {
				adminAreas = append(adminAreas, stop.AdminAreaCode)
				localities = append(localities, stop.LocalityID)
			}
		}

		patterns = append(patterns, &PatternOutput{
			Record:         record,
			AdminAreaCodes: util.RemoveDuplicateStrings(adminAreas, []string{}),
			LocalityIDs:    util.RemoveDuplicateStrings(localities, []string{}),
		})
	}

	return patterns
}

func lineNameFor(service *txc.Service, meta *ServicePatternMeta) string {
	if line := service.Line(meta.LineID); line != nil {
		return line.LineName
	}
	if len(service.Lines) > 0 {
		return service.Lines[0].LineName
	}

	return ""
}

func (t *Transformer) buildJourney(
	doc *txc.Document,
	service *txc.Service,
	index *PatternIndex,
	meta *ServicePatternMeta,
	journey *txc.VehicleJourney,
	stops map[string]*refdata.StopRecord,
	activities map[string]uint,
) *JourneyOutput {
	record := transmodel.VehicleJourney{
		StartTime:         journey.DepartureTime,
		Direction:         journey.Direction,
		LineRef:           journey.LineRef,
		DepartureDayShift: dayShift(journey.DepartureDayShift),
	}

	if record.Direction == "" {
		record.Direction = meta.Direction
	}

	if journey.Operational != nil {
		record.JourneyCode = journey.Operational.JourneyCode
		if journey.Operational.BlockNumber != "" {
			blockNumber := journey.Operational.BlockNumber
			record.BlockNumber = &blockNumber
		}
	}

	journeyOutput := &JourneyOutput{Record: record}

	journeyPattern := service.JourneyPattern(index.DocumentPatternRef(journey.VehicleJourneyCode))
	if journeyPattern == nil {
		log.Warn().
			Str("vehicleJourney", journey.VehicleJourneyCode).
			Msg("Vehicle journey's document pattern is missing, skipping stop expansion")
		return journeyOutput
	}

	journeyOutput.Stops = ExpandStops(doc, journey, journeyPattern, stops, activities)

	profile := txc.ResolveOperatingProfile(journey, journeyPattern, service)
	journeyOutput.Profile = ExpandOperatingProfile(doc, profile, service, t.Calendar)

	return journeyOutput
}

func dayShift(raw string) bool {
	return raw != "" && raw != "0"
}

func hasFlexibleServices(doc *txc.Document) bool {
	for _, service := range doc.Services {
		if service.FlexibleService != nil {
			return true
		}
	}

	return false
}
