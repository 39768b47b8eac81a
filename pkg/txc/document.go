package txc

import (
	"errors"
	"fmt"
)

// SupportedSchemaVersions are the TransXChange releases the pipeline accepts.
var SupportedSchemaVersions = []string{"2.1", "2.4"}

type Document struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`
	SchemaVersion        string `xml:",attr"`
	RevisionNumber       string `xml:",attr"`
	FileName             string `xml:",attr"`

	Operators              []*Operator
	Routes                 []*Route
	RouteSections          []*RouteSection
	Services               []*Service
	JourneyPatternSections []*JourneyPatternSection
	VehicleJourneys        []*VehicleJourney
	ServicedOrganisations  []*ServicedOrganisation
	StopPoints             []*AnnotatedStopPointRef

	// FileHash is the SHA-1 of the raw bytes, recorded when the parse
	// config enables it.
	FileHash string `xml:"-"`
}

func (doc *Document) Validate() error {
	if doc.CreationDateTime == "" {
		return errors.New("CreationDateTime must be set")
	}
	if doc.ModificationDateTime == "" {
		return errors.New("ModificationDateTime must be set")
	}

	for _, supported := range SupportedSchemaVersions {
		if doc.SchemaVersion == supported {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrSchemaVersionUnsupported, doc.SchemaVersion)
}

// JourneyPatternSection returns the section with the given id, or nil.
func (doc *Document) JourneyPatternSection(id string) *JourneyPatternSection {
	for _, section := range doc.JourneyPatternSections {
		if section.ID == id {
			return section
		}
	}

	return nil
}

// ServicedOrganisation returns the organisation with the given code, or nil.
func (doc *Document) ServicedOrganisation(code string) *ServicedOrganisation {
	for _, org := range doc.ServicedOrganisations {
		if org.OrganisationCode == code {
			return org
		}
	}

	return nil
}

// StopPointRefs returns every stop reference appearing in the document's
// journey pattern sections and flexible services, deduplicated in first-seen
// order.
func (doc *Document) StopPointRefs() []string {
	var refs []string
	seen := map[string]bool{}

	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	for _, section := range doc.JourneyPatternSections {
		for _, link := range section.JourneyPatternTimingLinks {
			add(link.From.StopPointRef)
			add(link.To.StopPointRef)
		}
	}

	for _, service := range doc.Services {
		if service.FlexibleService == nil {
			continue
		}

		for _, pattern := range service.FlexibleService.FlexibleJourneyPatterns {
			for _, usage := range pattern.StopPointsInSequence {
				add(usage.StopPointRef)
			}
		}
	}

	return refs
}
