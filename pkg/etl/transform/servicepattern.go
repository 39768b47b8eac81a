package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/txc"
)

var (
	// ErrNoValidPatterns means nothing in the document resolved to a usable
	// service pattern.
	ErrNoValidPatterns = errors.New("document contains no resolvable journey patterns")

	// ErrUnresolvedJourneyReference marks a vehicle-journey reference chain
	// that cycles or dangles without ever reaching a journey pattern.
	ErrUnresolvedJourneyReference = errors.New("unresolved vehicle journey reference chain")
)

// ServicePatternMeta is one canonical (deduplicated) service pattern: the
// unit every vehicle journey, stop row and track links attach to.
type ServicePatternMeta struct {
	ID string

	ServiceCode  string
	LineID       string
	LineRef      string
	Direction    string
	StopSequence []string

	// JourneyPatternIDs are the document journey patterns collapsed into
	// this canonical pattern.
	JourneyPatternIDs []string
}

func (m *ServicePatternMeta) StopCount() int { return len(m.StopSequence) }

// PatternIndex is the output of deduplication: the canonical patterns in
// first-seen order plus the maps linking document ids onto them.
type PatternIndex struct {
	// Patterns keyed by canonical id
	Patterns map[string]*ServicePatternMeta
	// Order preserves first-seen order for deterministic loading
	Order []string

	// sequence key -> canonical id
	bySequence map[string]string
	// journey pattern id -> canonical id
	ByJourneyPattern map[string]string
	// vehicle journey code -> canonical id
	ByVehicleJourney map[string]string

	// vehicle journey code -> document journey pattern id the journey
	// resolved through; the stop expander walks that pattern's links
	patternRefByJourney map[string]string
}

// DocumentPatternRef returns the document journey pattern id a vehicle
// journey resolved through, or "".
func (index *PatternIndex) DocumentPatternRef(vehicleJourneyCode string) string {
	return index.patternRefByJourney[vehicleJourneyCode]
}

// CanonicalPatternID derives the deterministic id for a stop sequence:
// SP-{service code}-{6 decimal digits of a stable hash of the sequence}.
func CanonicalPatternID(serviceCode string, stopSequence []string) string {
	digest := xxhash.Sum64String(strings.Join(stopSequence, "-"))

	return fmt.Sprintf("SP-%s-%06d", serviceCode, digest%1_000_000)
}

// BuildPatternIndex deduplicates every journey pattern of every standard
// service by stop sequence and resolves each vehicle journey to a canonical
// pattern.
func BuildPatternIndex(doc *txc.Document) (*PatternIndex, error) {
	index := &PatternIndex{
		Patterns:            map[string]*ServicePatternMeta{},
		bySequence:          map[string]string{},
		ByJourneyPattern:    map[string]string{},
		ByVehicleJourney:    map[string]string{},
		patternRefByJourney: map[string]string{},
	}

	for _, service := range doc.Services {
		if service.StandardService == nil {
			continue
		}

		for _, journeyPattern := range service.StandardService.JourneyPatterns {
			sequence := stopSequence(doc, journeyPattern)
			if len(sequence) == 0 {
				log.Warn().
					Str("journeyPattern", journeyPattern.ID).
					Msg("Journey pattern produced an empty stop sequence")
				continue
			}

			sequenceKey := service.ServiceCode + "\x00" + strings.Join(sequence, "\x00")

			canonicalID, exists := index.bySequence[sequenceKey]
			if !exists {
				canonicalID = CanonicalPatternID(service.ServiceCode, sequence)
				index.bySequence[sequenceKey] = canonicalID
				index.Order = append(index.Order, canonicalID)

				lineID := ""
				if len(service.Lines) > 0 {
					lineID = service.Lines[0].ID
				}

				index.Patterns[canonicalID] = &ServicePatternMeta{
					ID:           canonicalID,
					ServiceCode:  service.ServiceCode,
					LineID:       lineID,
					Direction:    journeyPattern.Direction,
					StopSequence: sequence,
				}
			}

			meta := index.Patterns[canonicalID]
			meta.JourneyPatternIDs = append(meta.JourneyPatternIDs, journeyPattern.ID)
			index.ByJourneyPattern[journeyPattern.ID] = canonicalID
		}
	}

	if err := index.resolveVehicleJourneys(doc); err != nil {
		return nil, err
	}

	if len(index.Patterns) == 0 {
		return nil, ErrNoValidPatterns
	}

	return index, nil
}

// stopSequence concatenates each section's From stops plus its final To
// stop, collapsing the duplicate where one section ends on the stop the next
// begins with. Genuine revisits (circulars) survive because only adjacent
// boundary repeats collapse.
func stopSequence(doc *txc.Document, journeyPattern *txc.JourneyPattern) []string {
	var sequence []string

	for _, sectionRef := range journeyPattern.JourneyPatternSectionRefs {
		section := doc.JourneyPatternSection(sectionRef)
		if section == nil {
			log.Warn().
				Str("journeyPattern", journeyPattern.ID).
				Str("sectionRef", sectionRef).
				Msg("Journey pattern references a missing section")
			continue
		}

		links := section.JourneyPatternTimingLinks
		if len(links) == 0 {
			continue
		}

		sectionSequence := make([]string, 0, len(links)+1)
		for i := range links {
			sectionSequence = append(sectionSequence, links[i].From.StopPointRef)
		}
		sectionSequence = append(sectionSequence, links[len(links)-1].To.StopPointRef)

		if len(sequence) > 0 && sequence[len(sequence)-1] == sectionSequence[0] {
			sectionSequence = sectionSequence[1:]
		}

		sequence = append(sequence, sectionSequence...)
	}

	return sequence
}

func (index *PatternIndex) resolveVehicleJourneys(doc *txc.Document) error {
	journeysByCode := make(map[string]*txc.VehicleJourney, len(doc.VehicleJourneys))
	for _, journey := range doc.VehicleJourneys {
		journeysByCode[journey.VehicleJourneyCode] = journey
	}

	for _, journey := range doc.VehicleJourneys {
		patternID, journeyPatternRef, err := index.resolveJourney(journey, journeysByCode)
		if err != nil {
			return err
		}

		if patternID == "" {
			log.Warn().
				Str("vehicleJourney", journey.VehicleJourneyCode).
				Msg("Vehicle journey does not resolve to a known journey pattern")
			continue
		}

		index.ByVehicleJourney[journey.VehicleJourneyCode] = patternID
		index.patternRefByJourney[journey.VehicleJourneyCode] = journeyPatternRef

		meta := index.Patterns[patternID]
		if meta != nil && meta.LineRef == "" {
			meta.LineRef = journey.LineRef
		}
	}

	return nil
}

// resolveJourney follows journey-to-journey references one step at a time
// until a journey pattern reference appears. Cycles and dangling references
// are programmer-grade failures, not warnings.
func (index *PatternIndex) resolveJourney(journey *txc.VehicleJourney, byCode map[string]*txc.VehicleJourney) (string, string, error) {
	visited := map[string]bool{}
	current := journey

	for {
		if current.JourneyPatternRef != "" {
			return index.ByJourneyPattern[current.JourneyPatternRef], current.JourneyPatternRef, nil
		}

		if current.VehicleJourneyRef == "" {
			return "", "", nil
		}

		if visited[current.VehicleJourneyCode] {
			return "", "", fmt.Errorf("%w: cycle at %s", ErrUnresolvedJourneyReference, current.VehicleJourneyCode)
		}
		visited[current.VehicleJourneyCode] = true

		next := byCode[current.VehicleJourneyRef]
		if next == nil {
			return "", "", fmt.Errorf("%w: %s references missing journey %s",
				ErrUnresolvedJourneyReference, current.VehicleJourneyCode, current.VehicleJourneyRef)
		}

		current = next
	}
}
