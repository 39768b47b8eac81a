package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/txc"
)

func compliantDocument() *txc.Document {
	return &txc.Document{
		Services: []*txc.Service{
			{
				ServiceCode:      "UZ000FLIX:UK045",
				Mode:             "coach",
				StartDate:        "2024-01-01",
				OperatingProfile: &txc.OperatingProfile{},
			},
		},
		VehicleJourneys: []*txc.VehicleJourney{
			{
				VehicleJourneyCode: "VJ1",
				JourneyPatternRef:  "JP1",
				DepartureTime:      "09:00:00",
			},
		},
	}
}

func TestCheckPTICompliantDocument(t *testing.T) {
	assert.Empty(t, CheckPTI(compliantDocument(), "feed.xml", 7))
}

func TestCheckPTIUnsupportedMode(t *testing.T) {
	doc := compliantDocument()
	doc.Services[0].Mode = "hovercraft"

	observations := CheckPTI(doc, "feed.xml", 7)

	require.Len(t, observations, 1)
	assert.Equal(t, "2.1", observations[0].Reference)
	assert.Equal(t, "Service", observations[0].Category)
	assert.Contains(t, observations[0].Details, "hovercraft")
}

func TestCheckPTIMissingStartDate(t *testing.T) {
	doc := compliantDocument()
	doc.Services[0].StartDate = ""

	observations := CheckPTI(doc, "feed.xml", 7)

	require.Len(t, observations, 1)
	assert.Equal(t, "2.2", observations[0].Reference)
}

func TestCheckPTIDepartureTimeFormat(t *testing.T) {
	doc := compliantDocument()
	doc.VehicleJourneys[0].DepartureTime = "9:00"

	observations := CheckPTI(doc, "feed.xml", 7)

	require.Len(t, observations, 1)
	assert.Equal(t, "4.1", observations[0].Reference)
}

func TestCheckPTIJourneyReferences(t *testing.T) {
	doc := compliantDocument()
	doc.VehicleJourneys[0].JourneyPatternRef = ""

	observations := CheckPTI(doc, "feed.xml", 7)
	require.Len(t, observations, 1)
	assert.Equal(t, "4.2", observations[0].Reference)

	doc.VehicleJourneys[0].JourneyPatternRef = "JP1"
	doc.VehicleJourneys[0].VehicleJourneyRef = "VJ0"

	observations = CheckPTI(doc, "feed.xml", 7)
	require.Len(t, observations, 1)
	assert.Equal(t, "4.3", observations[0].Reference)
}

func TestCheckPTIOperatingProfileAtAnyLevel(t *testing.T) {
	doc := compliantDocument()
	doc.Services[0].OperatingProfile = nil

	observations := CheckPTI(doc, "feed.xml", 7)
	require.Len(t, observations, 1)
	assert.Equal(t, "4.4", observations[0].Reference)

	// A profile on the referenced journey pattern satisfies the rule
	doc.Services[0].StandardService = &txc.StandardService{
		JourneyPatterns: []*txc.JourneyPattern{
			{ID: "JP1", OperatingProfile: &txc.OperatingProfile{}},
		},
	}

	assert.Empty(t, CheckPTI(doc, "feed.xml", 7))

	// So does one on the journey itself
	doc.Services[0].StandardService = nil
	doc.VehicleJourneys[0].OperatingProfile = &txc.OperatingProfile{}

	assert.Empty(t, CheckPTI(doc, "feed.xml", 7))
}
