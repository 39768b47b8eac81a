package load

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/etl/transform"
	"github.com/timetabler/timetabler/pkg/geomath"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&transmodel.Service{},
		&transmodel.BookingArrangement{},
		&transmodel.ServicePattern{},
		&transmodel.ServicePatternStop{},
		&transmodel.ServicePatternAdminArea{},
		&transmodel.ServicePatternLocality{},
		&transmodel.VehicleJourney{},
		&transmodel.OperatingProfile{},
		&transmodel.OperatingDatesExceptions{},
		&transmodel.NonOperatingDatesExceptions{},
		&transmodel.ServicedOrganisation{},
		&transmodel.ServicedOrganisationVehicleJourney{},
		&transmodel.ServicedOrganisationWorkingDays{},
		&transmodel.Track{},
		&transmodel.ServicePatternTrack{},
		&transmodel.VehicleJourneyTrack{},
		&transmodel.ServiceServicePattern{},
	))

	return db
}

func stopRecord(ref string, naptanID uint) *refdata.StopRecord {
	return &refdata.StopRecord{
		Reference:   ref,
		DisplayName: ref + " Street",
		NaptanID:    &naptanID,
	}
}

func trackLine() *transmodel.LineString {
	return transmodel.NewLineString([]geomath.Point{
		{Longitude: -0.1, Latitude: 51.5},
		{Longitude: -0.105, Latitude: 51.505},
		{Longitude: -0.11, Latitude: 51.51},
	})
}

func sampleOutput() *transform.Output {
	distance := 1200
	pairAB := transform.StopPair{FromAtcoCode: "A", ToAtcoCode: "B"}
	pairBC := transform.StopPair{FromAtcoCode: "B", ToAtcoCode: "C"}

	return &transform.Output{
		Services: []*transform.ServiceOutput{
			{
				Record: transmodel.Service{
					ServiceCode: "UZ000FLIX:UK045",
					Name:        "045",
					StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
					ServiceType: transmodel.ServiceTypeStandard,
					RevisionID:  7,
				},
				Patterns: []*transform.PatternOutput{
					{
						Record: transmodel.ServicePattern{
							ServicePatternID: "SP-UZ000FLIX:UK045-000001",
							Origin:           "Alpha",
							Destination:      "Charlie",
							LineName:         "045",
							RevisionID:       7,
						},
						AdminAreaCodes: []string{"082"},
						LocalityIDs:    []string{"E0034964"},
						Geometry: &transform.PatternGeometry{
							Pairs: []transform.StopPair{pairAB, pairBC},
							Candidates: []transform.TrackCandidate{
								{Pair: pairAB, Geometry: trackLine(), Distance: &distance},
								{Pair: pairBC},
							},
						},
						Journeys: []*transform.JourneyOutput{
							{
								Record: transmodel.VehicleJourney{
									StartTime:   "09:00:00",
									Direction:   "outbound",
									JourneyCode: "VJ1",
									LineRef:     "L1",
								},
								Stops: []transform.StopRow{
									{AutoSequence: 0, SequenceNumber: 0, StopRef: "A", Stop: stopRecord("A", 1), DepartureTime: "09:00:00"},
									{AutoSequence: 1, SequenceNumber: 1, StopRef: "B", Stop: stopRecord("B", 2), DepartureTime: "09:05:00"},
									{AutoSequence: 2, SequenceNumber: 2, StopRef: "C", Stop: stopRecord("C", 3), DepartureTime: "09:12:00"},
								},
								Profile: &transform.ProfileRows{
									DaysOfWeek:        []string{"monday", "tuesday"},
									NonOperatingDates: []time.Time{time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)},
									ServicedOrganisations: []transform.ServicedOrganisationLink{
										{
											OrganisationCode:       "SCH1",
											OrganisationName:       "Westshire Schools",
											OperatingOnWorkingDays: true,
											WorkingDays: []transform.DatePeriod{
												{
													Start: time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
													End:   time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC),
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestLoadFullBundle(t *testing.T) {
	db := testDB(t)
	loader := &Loader{DB: db}

	require.NoError(t, loader.Load(context.Background(), sampleOutput()))

	var services []transmodel.Service
	require.NoError(t, db.Find(&services).Error)
	require.Len(t, services, 1)
	assert.Equal(t, "UZ000FLIX:UK045", services[0].ServiceCode)

	var patterns []transmodel.ServicePattern
	require.NoError(t, db.Find(&patterns).Error)
	require.Len(t, patterns, 1)

	var journeys []transmodel.VehicleJourney
	require.NoError(t, db.Find(&journeys).Error)
	require.Len(t, journeys, 1)
	require.NotNil(t, journeys[0].ServicePatternID)
	assert.Equal(t, patterns[0].ID, *journeys[0].ServicePatternID)

	var stops []transmodel.ServicePatternStop
	require.NoError(t, db.Order("sequence_number").Find(&stops).Error)
	require.Len(t, stops, 3)
	assert.Equal(t, "A", stops[0].AtcoCode)
	assert.Equal(t, "A Street", stops[0].TxcCommonName)
	require.NotNil(t, stops[0].NaptanStopID)
	assert.Equal(t, uint(1), *stops[0].NaptanStopID)

	var profileRows []transmodel.OperatingProfile
	require.NoError(t, db.Find(&profileRows).Error)
	assert.Len(t, profileRows, 2)

	var nonOperating []transmodel.NonOperatingDatesExceptions
	require.NoError(t, db.Find(&nonOperating).Error)
	require.Len(t, nonOperating, 1)

	var organisations []transmodel.ServicedOrganisation
	require.NoError(t, db.Find(&organisations).Error)
	require.Len(t, organisations, 1)
	assert.Equal(t, "Westshire Schools", organisations[0].Name)

	var workingDays []transmodel.ServicedOrganisationWorkingDays
	require.NoError(t, db.Find(&workingDays).Error)
	assert.Len(t, workingDays, 1)

	// Both pairs get track rows; the second carries no geometry
	var tracks []transmodel.Track
	require.NoError(t, db.Order("id").Find(&tracks).Error)
	require.Len(t, tracks, 2)
	assert.Equal(t, "A", tracks[0].FromAtcoCode)
	require.NotNil(t, tracks[0].Distance)
	assert.Equal(t, 1200, *tracks[0].Distance)
	assert.Nil(t, tracks[1].Distance)

	var patternTracks []transmodel.ServicePatternTrack
	require.NoError(t, db.Order("sequence_number").Find(&patternTracks).Error)
	require.Len(t, patternTracks, 2)
	assert.Equal(t, 0, patternTracks[0].SequenceNumber)
	assert.Equal(t, 1, patternTracks[1].SequenceNumber)

	var journeyTracks []transmodel.VehicleJourneyTrack
	require.NoError(t, db.Find(&journeyTracks).Error)
	assert.Len(t, journeyTracks, 2)

	var links []transmodel.ServiceServicePattern
	require.NoError(t, db.Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, services[0].ID, links[0].ServiceID)
}

func TestLoadReusesExistingTracks(t *testing.T) {
	db := testDB(t)
	loader := &Loader{DB: db}

	existing := transmodel.Track{FromAtcoCode: "A", ToAtcoCode: "B"}
	require.NoError(t, db.Create(&existing).Error)

	require.NoError(t, loader.Load(context.Background(), sampleOutput()))

	var tracks []transmodel.Track
	require.NoError(t, db.Find(&tracks).Error)
	// A->B reused, only B->C inserted
	require.Len(t, tracks, 2)

	var patternTracks []transmodel.ServicePatternTrack
	require.NoError(t, db.Order("sequence_number").Find(&patternTracks).Error)
	require.Len(t, patternTracks, 2)
	assert.Equal(t, existing.ID, patternTracks[0].TrackID)
}

func TestLoadSkipTrackInsertsLeavesMissingPairsUnlinked(t *testing.T) {
	db := testDB(t)
	loader := &Loader{DB: db, SkipTrackInserts: true}

	existing := transmodel.Track{FromAtcoCode: "A", ToAtcoCode: "B"}
	require.NoError(t, db.Create(&existing).Error)

	require.NoError(t, loader.Load(context.Background(), sampleOutput()))

	var tracks []transmodel.Track
	require.NoError(t, db.Find(&tracks).Error)
	assert.Len(t, tracks, 1)

	var patternTracks []transmodel.ServicePatternTrack
	require.NoError(t, db.Find(&patternTracks).Error)
	require.Len(t, patternTracks, 1)
	assert.Equal(t, existing.ID, patternTracks[0].TrackID)
}

func TestConcurrentLoadersConvergeOnSharedPairs(t *testing.T) {
	db := testDB(t)

	// In-memory sqlite must stay on one connection or each pooled connection
	// would open its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	const workers = 4

	// Disjoint services sharing the same stop pairs
	outputs := make([]*transform.Output, workers)
	for i := range outputs {
		output := sampleOutput()
		output.Services[0].Record.ServiceCode = fmt.Sprintf("UZ000FLIX:UK%03d", i)
		outputs[i] = output
	}

	group := pool.New().WithMaxGoroutines(workers).WithErrors()
	for i := range outputs {
		output := outputs[i]

		group.Go(func() error {
			loader := &Loader{DB: db}

			for attempt := 0; attempt < 5; attempt++ {
				err := loader.Load(context.Background(), output)
				if err == nil || !errors.Is(err, ErrRetriable) {
					return err
				}
			}

			return errors.New("load kept losing the track insert race")
		})
	}
	require.NoError(t, group.Wait())

	// Every worker shares the same two rows
	var tracks []transmodel.Track
	require.NoError(t, db.Order("id").Find(&tracks).Error)
	require.Len(t, tracks, 2)
	assert.Equal(t, "A", tracks[0].FromAtcoCode)

	var patternTracks []transmodel.ServicePatternTrack
	require.NoError(t, db.Where("track_id = ?", tracks[0].ID).Find(&patternTracks).Error)
	assert.Len(t, patternTracks, workers)

	var services []transmodel.Service
	require.NoError(t, db.Find(&services).Error)
	assert.Len(t, services, workers)
}

func TestLoadBookingArrangement(t *testing.T) {
	db := testDB(t)
	loader := &Loader{DB: db}

	output := sampleOutput()
	output.Services[0].Record.ServiceType = transmodel.ServiceTypeFlexible
	output.Services[0].BookingArrangement = &transmodel.BookingArrangement{
		Description: "Book by phone at least two hours ahead",
		PhoneNumber: "0345 000 0000",
	}

	require.NoError(t, loader.Load(context.Background(), output))

	var arrangements []transmodel.BookingArrangement
	require.NoError(t, db.Find(&arrangements).Error)
	require.Len(t, arrangements, 1)
	assert.NotZero(t, arrangements[0].ServiceID)
}

func TestLoadIsAtomic(t *testing.T) {
	db := testDB(t)
	loader := &Loader{DB: db}

	// Dropping a table the loader writes late forces a mid-transaction failure
	require.NoError(t, db.Migrator().DropTable(&transmodel.ServiceServicePattern{}))

	err := loader.Load(context.Background(), sampleOutput())
	require.Error(t, err)

	var services []transmodel.Service
	require.NoError(t, db.Find(&services).Error)
	assert.Empty(t, services, "a failed load leaves no partial rows")

	var journeys []transmodel.VehicleJourney
	require.NoError(t, db.Find(&journeys).Error)
	assert.Empty(t, journeys)
}

func TestTranslateLoadError(t *testing.T) {
	assert.ErrorIs(t, translateLoadError(gorm.ErrDuplicatedKey), ErrRetriable)
	assert.NotErrorIs(t, translateLoadError(gorm.ErrInvalidData), ErrRetriable)
	assert.NoError(t, translateLoadError(nil))
}
