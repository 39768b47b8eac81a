package refdata

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testResolver(t *testing.T) (*Resolver, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&transmodel.NaptanStopPoint{},
		&transmodel.StopActivity{},
	))

	return NewResolver(db), db
}

func TestResolveStops(t *testing.T) {
	resolver, db := testResolver(t)

	require.NoError(t, db.Create(&transmodel.NaptanStopPoint{
		AtcoCode:      "490000001A",
		CommonName:    "Alpha Street",
		Longitude:     -0.1,
		Latitude:      51.5,
		AdminAreaCode: "082",
		LocalityID:    "E0034964",
	}).Error)

	resolved, err := resolver.ResolveStops(context.Background(),
		[]string{"490000001A", "490000009Z"},
		map[string]string{"490000009Z": "Missing Road"})
	require.NoError(t, err)

	require.Len(t, resolved, 2)

	stop := resolved["490000001A"]
	require.NotNil(t, stop)
	assert.False(t, stop.Placeholder)
	assert.Equal(t, "Alpha Street", stop.DisplayName)
	assert.Equal(t, "082", stop.AdminAreaCode)
	require.NotNil(t, stop.NaptanID)

	placeholder := resolved["490000009Z"]
	require.NotNil(t, placeholder)
	assert.True(t, placeholder.Placeholder)
	assert.Equal(t, "Missing Road", placeholder.DisplayName)
	assert.Nil(t, placeholder.NaptanID)
}

func TestResolveStopsEmptyInput(t *testing.T) {
	resolver, _ := testResolver(t)

	resolved, err := resolver.ResolveStops(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestStopActivityMap(t *testing.T) {
	resolver, db := testResolver(t)

	for _, name := range []string{"none", "pickUp", "setDown", "pickUpAndSetDown", "pass"} {
		require.NoError(t, db.Create(&transmodel.StopActivity{Name: name}).Error)
	}

	activities, err := resolver.StopActivityMap(context.Background())
	require.NoError(t, err)

	assert.Len(t, activities, 5)
	assert.NotZero(t, activities["pickUpAndSetDown"])
}

func TestFlexibleZones(t *testing.T) {
	doc := &txc.Document{
		Services: []*txc.Service{
			{
				FlexibleService: &txc.FlexibleService{
					FlexibleJourneyPatterns: []*txc.FlexibleJourneyPattern{
						{
							ID: "FJP1",
							FlexibleZones: []txc.FlexibleStopUsage{
								{
									StopPointRef: "Z1",
									FlexibleZone: []txc.Location{
										{LocationInner: txc.LocationInner{Longitude: -0.2, Latitude: 51.6}},
										{LocationInner: txc.LocationInner{Longitude: -0.21, Latitude: 51.61}},
									},
								},
								{StopPointRef: "Z2"},
							},
						},
					},
				},
			},
			{StandardService: &txc.StandardService{}},
		},
	}

	zones := FlexibleZones(doc)

	// Z2 carries no usable coordinates so only Z1 survives
	require.Len(t, zones, 1)
	require.Len(t, zones["Z1"], 2)
	assert.Equal(t, -0.2, zones["Z1"][0].Longitude)
	assert.Equal(t, 51.6, zones["Z1"][0].Latitude)
}

func TestCommonNames(t *testing.T) {
	doc := &txc.Document{
		StopPoints: []*txc.AnnotatedStopPointRef{
			{StopPointRef: "490000001A", CommonName: "Alpha Street"},
			{StopPointRef: "", CommonName: "nameless"},
		},
	}

	names := CommonNames(doc)

	assert.Equal(t, map[string]string{"490000001A": "Alpha Street"}, names)
}
