package validate

import (
	"fmt"
	"regexp"

	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"github.com/timetabler/timetabler/pkg/util"
)

// PTI profile rules over the typed document. Each rule carries the
// observation category and reference it reports under.

var departureTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)

var allowedModes = []string{
	"bus", "coach", "ferry", "metro", "rail", "tram", "trolleyBus", "underground",
}

// CheckPTI applies the policy profile and returns one observation per
// breach. Any observation fails the stage.
func CheckPTI(doc *txc.Document, filename string, revisionID int) []transmodel.PTIObservation {
	var observations []transmodel.PTIObservation

	observe := func(reference string, category string, details string) {
		observations = append(observations, transmodel.PTIObservation{
			Filename:   filename,
			Details:    details,
			Category:   category,
			Reference:  reference,
			RevisionID: revisionID,
		})
	}

	for _, service := range doc.Services {
		if service.Mode != "" && !util.ContainsString(allowedModes, service.Mode) {
			observe("2.1", "Service",
				fmt.Sprintf("service %s declares unsupported mode %q", service.ServiceCode, service.Mode))
		}

		if service.StartDate == "" {
			observe("2.2", "Service",
				fmt.Sprintf("service %s has no operating period start date", service.ServiceCode))
		}
	}

	for _, journey := range doc.VehicleJourneys {
		if journey.DepartureTime != "" && !departureTimePattern.MatchString(journey.DepartureTime) {
			observe("4.1", "VehicleJourney",
				fmt.Sprintf("vehicle journey %s departure time %q is not HH:MM:SS",
					journey.VehicleJourneyCode, journey.DepartureTime))
		}

		if journey.JourneyPatternRef == "" && journey.VehicleJourneyRef == "" {
			observe("4.2", "VehicleJourney",
				fmt.Sprintf("vehicle journey %s references neither a journey pattern nor another journey",
					journey.VehicleJourneyCode))
		}

		if journey.JourneyPatternRef != "" && journey.VehicleJourneyRef != "" {
			observe("4.3", "VehicleJourney",
				fmt.Sprintf("vehicle journey %s references both a journey pattern and another journey",
					journey.VehicleJourneyCode))
		}

		if !journeyHasOperatingProfile(doc, journey) {
			observe("4.4", "VehicleJourney",
				fmt.Sprintf("vehicle journey %s has no operating profile at any level",
					journey.VehicleJourneyCode))
		}
	}

	return observations
}

func journeyHasOperatingProfile(doc *txc.Document, journey *txc.VehicleJourney) bool {
	if journey.OperatingProfile != nil {
		return true
	}

	for _, service := range doc.Services {
		if service.OperatingProfile != nil {
			return true
		}

		if pattern := service.JourneyPattern(journey.JourneyPatternRef); pattern != nil && pattern.OperatingProfile != nil {
			return true
		}
	}

	return false
}
