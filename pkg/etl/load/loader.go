// Package load persists a transform output bundle. All writes for one file
// happen in a single transaction so a failure leaves no partial rows behind.
package load

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/etl/transform"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRetriable marks failures worth retrying at the stage level, chiefly the
// track pair uniqueness race between concurrent file workers.
var ErrRetriable = errors.New("retriable load failure")

const batchSize = 500

type Loader struct {
	DB *gorm.DB

	SkipTrackInserts bool
}

// Load writes the whole bundle inside one transaction, in an order that never
// needs an id generated later in the same pass.
func (l *Loader) Load(ctx context.Context, output *transform.Output) error {
	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tracks := &trackLinker{tx: tx, skipInserts: l.SkipTrackInserts}

		for _, service := range output.Services {
			if err := loadService(tx, service, tracks); err != nil {
				return err
			}
		}

		return nil
	})
}

func loadService(tx *gorm.DB, service *transform.ServiceOutput, tracks *trackLinker) error {
	if err := tx.Create(&service.Record).Error; err != nil {
		return translateLoadError(err)
	}

	if service.BookingArrangement != nil {
		service.BookingArrangement.ServiceID = service.Record.ID
		if err := tx.Create(service.BookingArrangement).Error; err != nil {
			return translateLoadError(err)
		}
	}

	for _, pattern := range service.Patterns {
		if err := loadPattern(tx, service.Record.ID, pattern, tracks); err != nil {
			return err
		}
	}

	return nil
}

func loadPattern(tx *gorm.DB, serviceID uint, pattern *transform.PatternOutput, tracks *trackLinker) error {
	if err := tx.Create(&pattern.Record).Error; err != nil {
		return translateLoadError(err)
	}
	patternID := pattern.Record.ID

	var adminAreas []transmodel.ServicePatternAdminArea
	for _, code := range pattern.AdminAreaCodes {
		adminAreas = append(adminAreas, transmodel.ServicePatternAdminArea{
			AdminAreaCode:    code,
			ServicePatternID: patternID,
		})
	}

	var localities []transmodel.ServicePatternLocality
	for _, localityID := range pattern.LocalityIDs {
		localities = append(localities, transmodel.ServicePatternLocality{
			LocalityID:       localityID,
			ServicePatternID: patternID,
		})
	}

	if err := createInBatches(tx, adminAreas); err != nil {
		return err
	}
	if err := createInBatches(tx, localities); err != nil {
		return err
	}

	for _, journey := range pattern.Journeys {
		if err := loadJourney(tx, patternID, journey); err != nil {
			return err
		}
	}

	trackIDs, err := tracks.ensure(pattern.Geometry)
	if err != nil {
		return err
	}

	var patternTracks []transmodel.ServicePatternTrack
	var journeyTracks []transmodel.VehicleJourneyTrack
	for sequence, trackID := range trackIDs {
		patternTracks = append(patternTracks, transmodel.ServicePatternTrack{
			SequenceNumber:   sequence,
			TrackID:          trackID,
			ServicePatternID: patternID,
		})

		for _, journey := range pattern.Journeys {
			journeyTracks = append(journeyTracks, transmodel.VehicleJourneyTrack{
				SequenceNumber:   sequence,
				TrackID:          trackID,
				VehicleJourneyID: journey.Record.ID,
			})
		}
	}

	if err := createInBatches(tx, patternTracks); err != nil {
		return err
	}
	if err := createInBatches(tx, journeyTracks); err != nil {
		return err
	}

	link := transmodel.ServiceServicePattern{ServiceID: serviceID, ServicePatternID: patternID}
	if err := tx.Create(&link).Error; err != nil {
		return translateLoadError(err)
	}

	return nil
}

func loadJourney(tx *gorm.DB, patternID uint, journey *transform.JourneyOutput) error {
	journey.Record.ServicePatternID = &patternID
	if err := tx.Create(&journey.Record).Error; err != nil {
		return translateLoadError(err)
	}
	journeyID := journey.Record.ID

	var stops []transmodel.ServicePatternStop
	for _, row := range journey.Stops {
		autoSequence := row.AutoSequence

		stops = append(stops, transmodel.ServicePatternStop{
			SequenceNumber:     row.SequenceNumber,
			AutoSequenceNumber: &autoSequence,
			AtcoCode:           row.StopRef,
			NaptanStopID:       row.Stop.NaptanID,
			TxcCommonName:      row.Stop.DisplayName,
			IsTimingPoint:      row.IsTimingPoint,
			DepartureTime:      row.DepartureTime,
			ServicePatternID:   patternID,
			VehicleJourneyID:   &journeyID,
			StopActivityID:     row.ActivityID,
		})
	}

	if err := createInBatches(tx, stops); err != nil {
		return err
	}

	if journey.Profile == nil {
		return nil
	}

	var profileRows []transmodel.OperatingProfile
	for _, day := range journey.Profile.DaysOfWeek {
		profileRows = append(profileRows, transmodel.OperatingProfile{
			DayOfWeek:        day,
			VehicleJourneyID: journeyID,
		})
	}
	if err := createInBatches(tx, profileRows); err != nil {
		return err
	}

	var operating []transmodel.OperatingDatesExceptions
	for _, date := range journey.Profile.OperatingDates {
		operating = append(operating, transmodel.OperatingDatesExceptions{
			OperatingDate:    date,
			VehicleJourneyID: journeyID,
		})
	}
	if err := createInBatches(tx, operating); err != nil {
		return err
	}

	var nonOperating []transmodel.NonOperatingDatesExceptions
	for _, date := range journey.Profile.NonOperatingDates {
		nonOperating = append(nonOperating, transmodel.NonOperatingDatesExceptions{
			NonOperatingDate: date,
			VehicleJourneyID: journeyID,
		})
	}
	if err := createInBatches(tx, nonOperating); err != nil {
		return err
	}

	return loadServicedOrganisations(tx, journeyID, journey.Profile.ServicedOrganisations)
}

func loadServicedOrganisations(tx *gorm.DB, journeyID uint, links []transform.ServicedOrganisationLink) error {
	for _, orgLink := range links {
		organisationID, err := ensureServicedOrganisation(tx, orgLink)
		if err != nil {
			return err
		}

		row := transmodel.ServicedOrganisationVehicleJourney{
			OperatingOnWorkingDays: orgLink.OperatingOnWorkingDays,
			ServicedOrganisationID: organisationID,
			VehicleJourneyID:       journeyID,
		}
		if err := tx.Create(&row).Error; err != nil {
			return translateLoadError(err)
		}

		var workingDays []transmodel.ServicedOrganisationWorkingDays
		for _, period := range orgLink.WorkingDays {
			workingDays = append(workingDays, transmodel.ServicedOrganisationWorkingDays{
				StartDate:                            period.Start,
				EndDate:                              period.End,
				ServicedOrganisationVehicleJourneyID: row.ID,
			})
		}

		if err := createInBatches(tx, workingDays); err != nil {
			return err
		}
	}

	return nil
}

func ensureServicedOrganisation(tx *gorm.DB, link transform.ServicedOrganisationLink) (uint, error) {
	organisation := transmodel.ServicedOrganisation{
		OrganisationCode: link.OrganisationCode,
		Name:             link.OrganisationName,
	}

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Where(transmodel.ServicedOrganisation{OrganisationCode: link.OrganisationCode}).
		FirstOrCreate(&organisation).Error
	if err != nil {
		return 0, translateLoadError(err)
	}

	return organisation.ID, nil
}

// trackLinker implements the shared-write discipline on the track table:
// query which pairs exist, insert only the missing ones, link everything. A
// duplicate key on insert means another worker won the race and the whole
// file retries.
type trackLinker struct {
	tx          *gorm.DB
	skipInserts bool
}

// ensure returns the track id for each pair of the pattern in sequence
// order. With skipInserts set, pairs without an existing row are left
// unlinked.
func (t *trackLinker) ensure(geometry *transform.PatternGeometry) ([]uint, error) {
	if geometry == nil || len(geometry.Pairs) == 0 {
		return nil, nil
	}

	byPair, err := t.existingTracks(geometry.Pairs)
	if err != nil {
		return nil, err
	}

	if !t.skipInserts {
		var missing []*transmodel.Track
		for i := range geometry.Candidates {
			candidate := &geometry.Candidates[i]
			if _, exists := byPair[candidate.Pair]; exists {
				continue
			}

			missing = append(missing, &transmodel.Track{
				FromAtcoCode: candidate.Pair.FromAtcoCode,
				ToAtcoCode:   candidate.Pair.ToAtcoCode,
				Geometry:     candidate.Geometry,
				Distance:     candidate.Distance,
			})
		}

		if len(missing) > 0 {
			if err := t.tx.CreateInBatches(missing, batchSize).Error; err != nil {
				return nil, translateLoadError(err)
			}

			for _, track := range missing {
				byPair[transform.StopPair{
					FromAtcoCode: track.FromAtcoCode,
					ToAtcoCode:   track.ToAtcoCode,
				}] = track.ID
			}
		}
	}

	var ids []uint
	for _, pair := range geometry.Pairs {
		id, found := byPair[pair]
		if !found {
			log.Debug().
				Str("from", pair.FromAtcoCode).
				Str("to", pair.ToAtcoCode).
				Msg("No track row for pair, leaving unlinked")
			continue
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func (t *trackLinker) existingTracks(pairs []transform.StopPair) (map[transform.StopPair]uint, error) {
	var froms []string
	wanted := map[transform.StopPair]bool{}
	for _, pair := range pairs {
		froms = append(froms, pair.FromAtcoCode)
		wanted[pair] = true
	}

	var rows []transmodel.Track
	if err := t.tx.Where("from_atco_code IN ?", froms).Find(&rows).Error; err != nil {
		return nil, translateLoadError(err)
	}

	byPair := map[transform.StopPair]uint{}
	for _, row := range rows {
		pair := transform.StopPair{FromAtcoCode: row.FromAtcoCode, ToAtcoCode: row.ToAtcoCode}
		if wanted[pair] {
			byPair[pair] = row.ID
		}
	}

	return byPair, nil
}

func createInBatches[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return translateLoadError(err)
	}

	return nil
}

// translateLoadError maps uniqueness violations onto the retriable class.
func translateLoadError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrRetriable, err)
	}

	return err
}
