package transform

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	iso8601 "github.com/senseyeio/duration"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/txc"
)

const timeOfDayFormat = "15:04:05"

const defaultActivity = "pickUpAndSetDown"

// StopRow is one stop occurrence of one vehicle journey, with its computed
// departure time.
type StopRow struct {
	AutoSequence   int
	SequenceNumber int

	StopRef       string
	Stop          *refdata.StopRecord
	DepartureTime string
	IsTimingPoint bool
	ActivityID    *uint
}

// ExpandStops walks the journey pattern's timing links for one vehicle
// journey, accumulating runtimes and wait times into a departure time per
// stop occurrence. The walk is a fold carrying (currentTime, rows); it never
// mutates the document.
func ExpandStops(
	doc *txc.Document,
	journey *txc.VehicleJourney,
	journeyPattern *txc.JourneyPattern,
	stops map[string]*refdata.StopRecord,
	activities map[string]uint,
) []StopRow {
	departureTime, err := time.Parse(timeOfDayFormat, journey.DepartureTime)
	if err != nil {
		log.Error().
			Str("vehicleJourney", journey.VehicleJourneyCode).
			Str("departureTime", journey.DepartureTime).
			Msg("Vehicle journey has unparseable departure time")
		return nil
	}

	// Flatten the sections, remembering where each one ends
	type walkLink struct {
		link          *txc.JourneyPatternTimingLink
		lastOfSection bool
	}

	var links []walkLink
	for _, sectionRef := range journeyPattern.JourneyPatternSectionRefs {
		section := doc.JourneyPatternSection(sectionRef)
		if section == nil {
			continue
		}

		for i := range section.JourneyPatternTimingLinks {
			links = append(links, walkLink{
				link:          &section.JourneyPatternTimingLinks[i],
				lastOfSection: i == len(section.JourneyPatternTimingLinks)-1,
			})
		}
	}

	if len(links) == 0 {
		log.Warn().
			Str("vehicleJourney", journey.VehicleJourneyCode).
			Msg("Vehicle journey's pattern has no timing links")
		return nil
	}

	var rows []StopRow
	autoSequence := 0
	cursor := departureTime
	lastEmittedRef := ""

	emit := func(usage *txc.TimingLinkUsage, override *txc.TimingLinkUsage, at time.Time) bool {
		record := stops[usage.StopPointRef]
		if record == nil {
			log.Error().
				Str("vehicleJourney", journey.VehicleJourneyCode).
				Str("stopRef", usage.StopPointRef).
				Msg("Ran out of reference data stops, emitting partial journey")
			return false
		}

		activityID, ok := lookupActivity(usage, override, activities)
		if !ok {
			log.Warn().
				Str("vehicleJourney", journey.VehicleJourneyCode).
				Str("stopRef", usage.StopPointRef).
				Msg("Unknown stop activity, dropping stop")
			lastEmittedRef = usage.StopPointRef
			autoSequence++
			return true
		}

		sequenceNumber := autoSequence
		if usage.SequenceNumber != "" {
			if explicit, err := strconv.Atoi(usage.SequenceNumber); err == nil {
				sequenceNumber = explicit
			}
		}

		rows = append(rows, StopRow{
			AutoSequence:   autoSequence,
			SequenceNumber: sequenceNumber,
			StopRef:        usage.StopPointRef,
			Stop:           record,
			DepartureTime:  at.Format(timeOfDayFormat),
			IsTimingPoint:  usage.IsTimingPoint(),
			ActivityID:     activityID,
		})

		lastEmittedRef = usage.StopPointRef
		autoSequence++
		return true
	}

	for i, current := range links {
		link := current.link
		override := journey.GetVehicleJourneyTimingLinkByJourneyPatternTimingLinkRef(link.ID)

		overrideFrom, overrideTo := overrideUsages(override)

		if i == 0 {
			// The first stop departs at the journey's published departure
			// time; its wait (the first link's From wait) is spent before the
			// vehicle moves off, so it lands in the advance to the next stop
			if !emit(&link.From, overrideFrom, cursor) {
				return rows
			}

			if wait, present := effectiveWait(&link.From, overrideFrom); present {
				cursor = wait.Shift(cursor)
			}
		} else if lastEmittedRef != link.From.StopPointRef {
			if !emit(&link.From, overrideFrom, cursor) {
				return rows
			}
		}

		cursor = effectiveRuntime(journey, link, override).Shift(cursor)

		lastOverall := i == len(links)-1
		if !lastOverall {
			// Intermediate stop: prefer the current link's To wait, fall
			// back to the next link's From wait. PT0S counts as absent.
			wait, present := effectiveWait(&link.To, overrideTo)
			if !present {
				next := links[i+1].link
				nextOverride := journey.GetVehicleJourneyTimingLinkByJourneyPatternTimingLinkRef(next.ID)
				nextOverrideFrom, _ := overrideUsages(nextOverride)
				wait, present = effectiveWait(&next.From, nextOverrideFrom)
			}

			if present {
				cursor = wait.Shift(cursor)
			}
		}

		if current.lastOfSection {
			if !emit(&link.To, overrideTo, cursor) {
				return rows
			}
		}
	}

	return rows
}

func overrideUsages(override *txc.VehicleJourneyTimingLink) (*txc.TimingLinkUsage, *txc.TimingLinkUsage) {
	if override == nil {
		return nil, nil
	}

	return &override.From, &override.To
}

// effectiveRuntime applies the vehicle journey's timing link override when
// present, degrading silently to the base runtime.
func effectiveRuntime(journey *txc.VehicleJourney, link *txc.JourneyPatternTimingLink, override *txc.VehicleJourneyTimingLink) iso8601.Duration {
	raw := link.RunTime
	if override != nil && override.RunTime != "" {
		raw = override.RunTime
	} else if override == nil && len(journey.VehicleJourneyTimingLinks) > 0 {
		log.Debug().
			Str("vehicleJourney", journey.VehicleJourneyCode).
			Str("timingLink", link.ID).
			Msg("No timing link override, using base runtime")
	}

	parsed, err := iso8601.ParseISO8601(raw)
	if err != nil {
		if raw != "" {
			log.Warn().Str("runTime", raw).Msg("Unparseable runtime treated as zero")
		}
		return iso8601.Duration{}
	}

	return parsed
}

// effectiveWait returns the wait duration for a stop usage. The vehicle
// journey override wins over the base value; a literal PT0S (or anything
// unparseable) counts as absent.
func effectiveWait(base *txc.TimingLinkUsage, override *txc.TimingLinkUsage) (iso8601.Duration, bool) {
	candidates := []string{}
	if override != nil && override.WaitTime != "" {
		candidates = append(candidates, override.WaitTime)
	}
	if base.WaitTime != "" {
		candidates = append(candidates, base.WaitTime)
	}

	for _, raw := range candidates {
		parsed, err := iso8601.ParseISO8601(raw)
		if err != nil {
			log.Warn().Str("waitTime", raw).Msg("Unparseable wait time treated as absent")
			continue
		}

		if !parsed.IsZero() {
			return parsed, true
		}
	}

	return iso8601.Duration{}, false
}

func lookupActivity(usage *txc.TimingLinkUsage, override *txc.TimingLinkUsage, activities map[string]uint) (*uint, bool) {
	name := defaultActivity
	if usage.Activity != "" {
		name = usage.Activity
	}
	if override != nil && override.Activity != "" {
		name = override.Activity
	}

	id, found := activities[name]
	if !found {
		return nil, false
	}

	return &id, true
}
