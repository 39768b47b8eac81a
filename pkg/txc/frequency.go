package txc

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	iso8601 "github.com/senseyeio/duration"
)

const departureTimeFormat = "15:04:05"

// ExpandFrequencies duplicates each frequency-based vehicle journey into one
// concrete journey per scheduled departure. The copies share the original's
// pattern reference and profile; only the departure time and code differ.
func (doc *Document) ExpandFrequencies() {
	for _, journey := range doc.VehicleJourneys {
		if journey.Frequency == nil || journey.Frequency.Interval == nil {
			continue
		}

		departureTime, err := time.Parse(departureTimeFormat, journey.DepartureTime)
		if err != nil {
			log.Warn().Str("journey", journey.VehicleJourneyCode).Msg("Frequency journey has unparseable departure time")
			continue
		}

		endTime, err := time.Parse(departureTimeFormat, journey.Frequency.EndTime)
		if err != nil {
			log.Warn().Str("journey", journey.VehicleJourneyCode).Msg("Frequency journey has unparseable end time")
			continue
		}

		interval, err := iso8601.ParseISO8601(journey.Frequency.Interval.ScheduledFrequency)
		if err != nil || interval.IsZero() {
			log.Warn().Str("journey", journey.VehicleJourneyCode).Msg("Frequency journey has unusable interval")
			continue
		}

		for newDepartureTime := interval.Shift(departureTime); newDepartureTime.Sub(endTime) <= 0; newDepartureTime = interval.Shift(newDepartureTime) {
			var copiedJourney VehicleJourney
			err := copier.CopyWithOption(&copiedJourney, *journey, copier.Option{IgnoreEmpty: true, DeepCopy: true})

			if err != nil {
				log.Error().Err(err).Msgf("Failed to copy VehicleJourney %s", journey.VehicleJourneyCode)
				continue
			}

			copiedJourney.DepartureTime = newDepartureTime.Format(departureTimeFormat)
			copiedJourney.VehicleJourneyCode = fmt.Sprintf("%s-%s", copiedJourney.VehicleJourneyCode, copiedJourney.DepartureTime)
			copiedJourney.Frequency = nil

			doc.VehicleJourneys = append(doc.VehicleJourneys, &copiedJourney)
		}

		journey.Frequency = nil
	}
}
