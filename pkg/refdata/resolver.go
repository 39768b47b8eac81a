// Package refdata resolves the stop references a TXC document uses against
// the NaPTAN reference dataset, and owns the commands that seed that dataset.
package refdata

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/geomath"
	"github.com/timetabler/timetabler/pkg/metrics"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"gorm.io/gorm"
)

// StopRecord is a resolved stop, or a placeholder when the reference is
// missing from the authoritative dataset. Placeholders carry only the
// reference and a display name; anything needing a coordinate skips them.
type StopRecord struct {
	Reference   string
	DisplayName string
	Placeholder bool

	NaptanID      *uint
	Longitude     float64
	Latitude      float64
	AdminAreaCode string
	LocalityID    string
}

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveStops maps every reference to a stop record. commonNames supplies
// the document's own AnnotatedStopPointRef names, used as placeholder display
// names when the stop is missing from NaPTAN.
func (r *Resolver) ResolveStops(ctx context.Context, refs []string, commonNames map[string]string) (map[string]*StopRecord, error) {
	resolved := map[string]*StopRecord{}

	if len(refs) == 0 {
		return resolved, nil
	}

	var rows []transmodel.NaptanStopPoint
	if err := r.db.WithContext(ctx).Where("atco_code IN ?", refs).Find(&rows).Error; err != nil {
		return nil, err
	}

	for i := range rows {
		row := rows[i]
		resolved[row.AtcoCode] = &StopRecord{
			Reference:     row.AtcoCode,
			DisplayName:   row.CommonName,
			NaptanID:      &row.ID,
			Longitude:     row.Longitude,
			Latitude:      row.Latitude,
			AdminAreaCode: row.AdminAreaCode,
			LocalityID:    row.LocalityID,
		}
	}

	var missing int
	for _, ref := range refs {
		if resolved[ref] != nil {
			continue
		}

		missing++
		metrics.PlaceholderStops.Inc()

		resolved[ref] = &StopRecord{
			Reference:   ref,
			DisplayName: commonNames[ref],
			Placeholder: true,
		}
	}

	if missing > 0 {
		metrics.MissingStopRefs.Add(float64(missing))
		log.Warn().
			Int("missing", missing).
			Int("total", len(refs)).
			Msg("Stop references missing from NaPTAN, using placeholders")
	}

	return resolved, nil
}

// StopActivityMap fetches the complete activity-name to id mapping once per
// file.
func (r *Resolver) StopActivityMap(ctx context.Context) (map[string]uint, error) {
	var rows []transmodel.StopActivity
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	activities := make(map[string]uint, len(rows))
	for _, row := range rows {
		activities[row.Name] = row.ID
	}

	return activities, nil
}

// FlexibleZones returns the coordinate list for every flexible-zone stop
// reference in the document.
func FlexibleZones(doc *txc.Document) map[string][]geomath.Point {
	zones := map[string][]geomath.Point{}

	for _, service := range doc.Services {
		if service.FlexibleService == nil {
			continue
		}

		for _, pattern := range service.FlexibleService.FlexibleJourneyPatterns {
			for _, usage := range pattern.FlexibleZones {
				if len(usage.FlexibleZone) == 0 {
					continue
				}

				var points []geomath.Point
				for i := range usage.FlexibleZone {
					lon, lat, ok := usage.FlexibleZone[i].LonLat()
					if ok {
						points = append(points, geomath.Point{Longitude: lon, Latitude: lat})
					}
				}

				if len(points) > 0 {
					zones[usage.StopPointRef] = points
				}
			}
		}
	}

	return zones
}

// CommonNames extracts the document's own stop display names.
func CommonNames(doc *txc.Document) map[string]string {
	names := map[string]string{}

	for _, stopPoint := range doc.StopPoints {
		if stopPoint.StopPointRef != "" {
			names[stopPoint.StopPointRef] = stopPoint.CommonName
		}
	}

	return names
}
