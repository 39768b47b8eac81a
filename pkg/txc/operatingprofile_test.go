package txc

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatingProfileUnmarshal(t *testing.T) {
	payload := `<OperatingProfile>
  <RegularDayType>
    <DaysOfWeek><MondayToFriday/></DaysOfWeek>
  </RegularDayType>
  <SpecialDaysOperation>
    <DaysOfOperation>
      <DateRange><StartDate>2024-06-01</StartDate><EndDate>2024-06-02</EndDate></DateRange>
    </DaysOfOperation>
    <DaysOfNonOperation>
      <DateRange><StartDate>2024-12-25</StartDate></DateRange>
    </DaysOfNonOperation>
  </SpecialDaysOperation>
  <BankHolidayOperation>
    <DaysOfOperation>
      <GoodFriday/>
      <OtherPublicHoliday>
        <Description>Town carnival</Description>
        <Date>2024-07-13</Date>
      </OtherPublicHoliday>
    </DaysOfOperation>
    <DaysOfNonOperation>
      <ChristmasDay/>
      <BoxingDay/>
    </DaysOfNonOperation>
  </BankHolidayOperation>
  <ServicedOrganisationDayType>
    <DaysOfOperation>
      <WorkingDays><ServicedOrganisationRef>SCH1</ServicedOrganisationRef></WorkingDays>
    </DaysOfOperation>
  </ServicedOrganisationDayType>
</OperatingProfile>`

	var profile OperatingProfile
	require.NoError(t, xml.Unmarshal([]byte(payload), &profile))

	assert.Equal(t, ElementNameList{"MondayToFriday"}, profile.RegularDayType.DaysOfWeek)

	require.NotNil(t, profile.SpecialDaysOperation)
	require.Len(t, profile.SpecialDaysOperation.DaysOfOperation, 1)
	assert.Equal(t, "2024-06-01", profile.SpecialDaysOperation.DaysOfOperation[0].StartDate)
	assert.Equal(t, "2024-06-02", profile.SpecialDaysOperation.DaysOfOperation[0].EndDate)
	require.Len(t, profile.SpecialDaysOperation.DaysOfNonOperation, 1)
	assert.Empty(t, profile.SpecialDaysOperation.DaysOfNonOperation[0].EndDate)

	require.NotNil(t, profile.BankHolidayOperation)
	assert.Equal(t, []string{"GoodFriday"}, profile.BankHolidayOperation.DaysOfOperation.Holidays)
	require.Len(t, profile.BankHolidayOperation.DaysOfOperation.OtherPublicHolidays, 1)
	assert.Equal(t, "2024-07-13", profile.BankHolidayOperation.DaysOfOperation.OtherPublicHolidays[0].Date)
	assert.Equal(t, []string{"ChristmasDay", "BoxingDay"}, profile.BankHolidayOperation.DaysOfNonOperation.Holidays)

	require.NotNil(t, profile.ServicedOrganisationDayType)
	require.Len(t, profile.ServicedOrganisationDayType.DaysOfOperation, 1)
	assert.Equal(t, []string{"SCH1"}, profile.ServicedOrganisationDayType.DaysOfOperation[0].WorkingDays)
}

func TestRegularDayTypeWeekdays(t *testing.T) {
	tests := []struct {
		name     string
		days     ElementNameList
		expected []time.Weekday
	}{
		{"singles", ElementNameList{"Monday", "Wednesday"}, []time.Weekday{time.Monday, time.Wednesday}},
		{"monday to friday", ElementNameList{"MondayToFriday"}, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{"weekend", ElementNameList{"Weekend"}, []time.Weekday{time.Saturday, time.Sunday}},
		{"overlapping", ElementNameList{"MondayToFriday", "Monday"}, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mask := (&RegularDayType{DaysOfWeek: test.days}).Weekdays()

			assert.Len(t, mask, len(test.expected))
			for _, day := range test.expected {
				assert.True(t, mask[day], day.String())
			}
		})
	}
}

func TestHolidaysOnlyYieldsEmptyMask(t *testing.T) {
	dayType := &RegularDayType{
		DaysOfWeek:   ElementNameList{"Monday"},
		HolidaysOnly: &struct{}{},
	}

	assert.Empty(t, dayType.Weekdays())
}

func TestResolveOperatingProfilePrecedence(t *testing.T) {
	journeyProfile := &OperatingProfile{}
	patternProfile := &OperatingProfile{}
	serviceProfile := &OperatingProfile{}

	journey := &VehicleJourney{OperatingProfile: journeyProfile}
	pattern := &JourneyPattern{OperatingProfile: patternProfile}
	service := &Service{OperatingProfile: serviceProfile}

	assert.Same(t, journeyProfile, ResolveOperatingProfile(journey, pattern, service))
	assert.Same(t, patternProfile, ResolveOperatingProfile(&VehicleJourney{}, pattern, service))
	assert.Same(t, serviceProfile, ResolveOperatingProfile(&VehicleJourney{}, &JourneyPattern{}, service))
	assert.Nil(t, ResolveOperatingProfile(&VehicleJourney{}, &JourneyPattern{}, &Service{}))
}
