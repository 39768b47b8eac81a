package txc

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ParseConfig selects which document sections the parser populates. Stages
// that only need file attributes skip the expensive sections.
type ParseConfig struct {
	Metadata               bool
	Services               bool
	Operators              bool
	FileHash               bool
	ServicedOrganisations  bool
	StopPoints             bool
	RouteSections          bool
	Routes                 bool
	JourneyPatternSections bool
	VehicleJourneys        bool
	TrackData              bool
}

// ParseEverything enables every section.
func ParseEverything() ParseConfig {
	return ParseConfig{
		Metadata:               true,
		Services:               true,
		Operators:              true,
		FileHash:               true,
		ServicedOrganisations:  true,
		StopPoints:             true,
		RouteSections:          true,
		Routes:                 true,
		JourneyPatternSections: true,
		VehicleJourneys:        true,
		TrackData:              true,
	}
}

// Parse reads a TransXChange document. Namespace prefixes are stripped by
// matching on local names only; DTD declarations are rejected and external
// entities are never fetched. Elements that fail to decode are skipped with
// a warning rather than aborting the document.
func Parse(reader io.Reader, cfg ParseConfig) (*Document, error) {
	document := Document{}

	if cfg.FileHash {
		sha := sha1.New()
		reader = io.TeeReader(reader, sha)

		// The token loop consumes the stream to EOF, so the digest covers
		// the whole file by the time we return.
		defer func() {
			document.FileHash = hex.EncodeToString(sha.Sum(nil))
		}()
	}

	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	// Undeclared entities resolve to nothing instead of hitting the network
	d.Entity = map[string]string{}

	sawRoot := false

	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformedXML, err)
		}

		switch ty := tok.(type) {
		case xml.Directive:
			if strings.HasPrefix(strings.TrimSpace(string(ty)), "DOCTYPE") {
				return nil, ErrExternalEntity
			}
		case xml.StartElement:
			switch ty.Name.Local {
			case "TransXChange":
				sawRoot = true
				if cfg.Metadata {
					parseRootAttributes(&document, ty.Attr)

					if err := document.Validate(); err != nil {
						return nil, err
					}
				}
			case "AnnotatedStopPointRef":
				if cfg.StopPoints {
					var stopPoint AnnotatedStopPointRef
					decodeSection(d, &ty, &stopPoint, func() {
						document.StopPoints = append(document.StopPoints, &stopPoint)
					})
				}
			case "Operator", "LicensedOperator":
				if cfg.Operators {
					var operator Operator
					decodeSection(d, &ty, &operator, func() {
						document.Operators = append(document.Operators, &operator)
					})
				}
			case "Route":
				if cfg.Routes {
					var route Route
					decodeSection(d, &ty, &route, func() {
						document.Routes = append(document.Routes, &route)
					})
				}
			case "RouteSection":
				if cfg.RouteSections {
					var routeSection RouteSection
					decodeSection(d, &ty, &routeSection, func() {
						if !cfg.TrackData {
							for i := range routeSection.RouteLinks {
								routeSection.RouteLinks[i].Track = nil
							}
						}
						document.RouteSections = append(document.RouteSections, &routeSection)
					})
				}
			case "Service":
				if cfg.Services {
					var service Service
					decodeSection(d, &ty, &service, func() {
						if service.ServiceCode == "" {
							log.Warn().Msg("Skipping Service without a ServiceCode")
							return
						}
						document.Services = append(document.Services, &service)
					})
				}
			case "JourneyPatternSection":
				if cfg.JourneyPatternSections {
					var jps JourneyPatternSection
					decodeSection(d, &ty, &jps, func() {
						if jps.ID == "" {
							log.Warn().Msg("Skipping JourneyPatternSection without an id")
							return
						}
						document.JourneyPatternSections = append(document.JourneyPatternSections, &jps)
					})
				}
			case "VehicleJourney", "FlexibleVehicleJourney":
				if cfg.VehicleJourneys {
					var vehicleJourney VehicleJourney
					decodeSection(d, &ty, &vehicleJourney, func() {
						if vehicleJourney.VehicleJourneyCode == "" {
							log.Warn().Msg("Skipping VehicleJourney without a VehicleJourneyCode")
							return
						}
						document.VehicleJourneys = append(document.VehicleJourneys, &vehicleJourney)
					})
				}
			case "ServicedOrganisation":
				if cfg.ServicedOrganisations {
					var org ServicedOrganisation
					decodeSection(d, &ty, &org, func() {
						document.ServicedOrganisations = append(document.ServicedOrganisations, &org)
					})
				}
			}
		default:
		}
	}

	if !sawRoot && cfg.Metadata {
		return nil, fmt.Errorf("%w: no TransXChange root element", ErrMalformedXML)
	}

	log.Debug().Msg("Successfully parsed document")
	log.Debug().Msgf(" - Last modified %s", document.ModificationDateTime)
	log.Debug().Msgf(" - Contains %d operators", len(document.Operators))
	log.Debug().Msgf(" - Contains %d services", len(document.Services))
	log.Debug().Msgf(" - Contains %d routes", len(document.Routes))
	log.Debug().Msgf(" - Contains %d route sections", len(document.RouteSections))
	log.Debug().Msgf(" - Contains %d vehicle journeys", len(document.VehicleJourneys))

	return &document, nil
}

func parseRootAttributes(document *Document, attrs []xml.Attr) {
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "CreationDateTime":
			document.CreationDateTime = attr.Value
		case "ModificationDateTime":
			document.ModificationDateTime = attr.Value
		case "SchemaVersion":
			document.SchemaVersion = attr.Value
		case "RevisionNumber":
			document.RevisionNumber = attr.Value
		case "FileName":
			document.FileName = attr.Value
		}
	}
}

// decodeSection decodes one top-level element, calling keep on success and
// logging a warning on failure. A single broken element never fails the file.
func decodeSection(d *xml.Decoder, start *xml.StartElement, target any, keep func()) {
	if err := d.DecodeElement(target, start); err != nil {
		log.Warn().Err(err).Str("element", start.Name.Local).Msg("Skipping element that failed to decode")
		return
	}

	keep()
}
