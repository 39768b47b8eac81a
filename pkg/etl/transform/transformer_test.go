package transform

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func flexibleDocument() *txc.Document {
	return &txc.Document{
		Services: []*txc.Service{
			{
				ServiceCode: "UZ000FLIX:DRT1",
				Lines:       []txc.Line{{ID: "L1", LineName: "DRT"}},
				FlexibleService: &txc.FlexibleService{
					Origin:      "Market Square",
					Destination: "Rural Ring",
					BookingArrangements: &txc.BookingArrangements{
						Description: "Book by phone at least two hours ahead",
						Phone:       "0345 000 0000",
					},
					FlexibleJourneyPatterns: []*txc.FlexibleJourneyPattern{
						{
							ID: "FJP1",
							StopPointsInSequence: []txc.FlexibleStopUsage{
								{StopPointRef: "A"},
							},
							FlexibleZones: []txc.FlexibleStopUsage{
								{
									StopPointRef: "Z",
									FlexibleZone: []txc.Location{
										{LocationInner: txc.LocationInner{Longitude: -0.20, Latitude: 51.60}},
										{LocationInner: txc.LocationInner{Longitude: -0.21, Latitude: 51.61}},
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

func TestBuildFlexiblePatterns(t *testing.T) {
	transformer := &Transformer{RevisionID: 7}
	doc := flexibleDocument()

	patterns := transformer.buildFlexiblePatterns(
		doc.Services[0], testStops("A"), refdata.FlexibleZones(doc))

	require.Len(t, patterns, 1)

	record := patterns[0].Record
	assert.Equal(t, "Market Square", record.Origin)
	assert.Equal(t, "Rural Ring", record.Destination)
	assert.Equal(t, "DRT", record.LineName)
	assert.Equal(t, 7, record.RevisionID)
	assert.Contains(t, record.ServicePatternID, "SP-UZ000FLIX:DRT1-")

	// One fixed stop plus the two zone outline points
	require.NotNil(t, record.Geom)
	assert.Len(t, record.Geom.Points, 3)
}

func TestBuildFlexiblePatternsSinglePointZoneHasNoGeometry(t *testing.T) {
	transformer := &Transformer{RevisionID: 7}
	doc := flexibleDocument()

	flexiblePattern := doc.Services[0].FlexibleService.FlexibleJourneyPatterns[0]
	flexiblePattern.StopPointsInSequence = nil
	flexiblePattern.FlexibleZones[0].FlexibleZone = flexiblePattern.FlexibleZones[0].FlexibleZone[:1]

	patterns := transformer.buildFlexiblePatterns(
		doc.Services[0], map[string]*refdata.StopRecord{}, refdata.FlexibleZones(doc))

	require.Len(t, patterns, 1)
	assert.Nil(t, patterns[0].Record.Geom)
}

func TestTransformFlexibleOnlyDocument(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&transmodel.NaptanStopPoint{},
		&transmodel.StopActivity{},
	))

	require.NoError(t, db.Create(&transmodel.NaptanStopPoint{
		AtcoCode:   "A",
		CommonName: "Alpha Street",
		Longitude:  -0.1,
		Latitude:   51.5,
	}).Error)

	transformer := &Transformer{
		Resolver:   refdata.NewResolver(db),
		RevisionID: 7,
	}

	output, err := transformer.Transform(context.Background(), flexibleDocument())
	require.NoError(t, err)

	require.Len(t, output.Services, 1)
	service := output.Services[0]
	assert.Equal(t, transmodel.ServiceTypeFlexible, service.Record.ServiceType)
	require.NotNil(t, service.BookingArrangement)

	// The zone coordinates reach the pattern geometry
	require.Len(t, service.Patterns, 1)
	require.NotNil(t, service.Patterns[0].Record.Geom)
	assert.Len(t, service.Patterns[0].Record.Geom.Points, 3)
}
