package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/txc"
)

func testCalendar() *bankholidays.Calendar {
	// NewCalendar overlays the fixed-date holidays onto each listed year
	return bankholidays.NewCalendar(map[int]map[string]time.Time{
		2024: {
			"GoodFriday":   time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
			"EasterMonday": time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	})
}

func mondayToFridayProfile() *txc.OperatingProfile {
	return &txc.OperatingProfile{
		RegularDayType: txc.RegularDayType{
			DaysOfWeek: txc.ElementNameList{"MondayToFriday"},
		},
	}
}

func serviceWindow(start string, end string) *txc.Service {
	return &txc.Service{
		ServiceCode: "UZ000FLIX:UK045",
		StartDate:   start,
		EndDate:     end,
	}
}

func date(value string) time.Time {
	parsed, err := time.Parse(bankholidays.YearMonthDayFormat, value)
	if err != nil {
		panic(err)
	}

	return parsed
}

func TestExpandRegularDayMaskOnly(t *testing.T) {
	rows := ExpandOperatingProfile(&txc.Document{}, mondayToFridayProfile(),
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	assert.Equal(t, []string{"monday", "tuesday", "wednesday", "thursday", "friday"}, rows.DaysOfWeek)
	assert.Empty(t, rows.OperatingDates)
	assert.Empty(t, rows.NonOperatingDates)
	assert.Empty(t, rows.ServicedOrganisations)
}

func TestExpandChristmasDayNonOperation(t *testing.T) {
	profile := mondayToFridayProfile()
	profile.BankHolidayOperation = &txc.BankHolidayOperation{
		DaysOfNonOperation: txc.BankHolidayDays{Holidays: []string{"ChristmasDay"}},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, profile,
		serviceWindow("2024-12-23", "2024-12-27"), testCalendar())

	// 2024-12-25 is a Wednesday, inside the Mon-Fri mask
	require.Len(t, rows.NonOperatingDates, 1)
	assert.Equal(t, date("2024-12-25"), rows.NonOperatingDates[0])
	assert.Empty(t, rows.OperatingDates)
}

func TestBankHolidaySymmetry(t *testing.T) {
	// St Andrew's Day 2024 falls on a Saturday, outside the Mon-Fri mask:
	// enabling it yields an operating exception, disabling it yields nothing
	operating := mondayToFridayProfile()
	operating.BankHolidayOperation = &txc.BankHolidayOperation{
		DaysOfOperation: txc.BankHolidayDays{Holidays: []string{"StAndrewsDay"}},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, operating,
		serviceWindow("2024-11-01", "2024-12-31"), testCalendar())
	require.Len(t, rows.OperatingDates, 1)
	assert.Equal(t, date("2024-11-30"), rows.OperatingDates[0])

	nonOperating := mondayToFridayProfile()
	nonOperating.BankHolidayOperation = &txc.BankHolidayOperation{
		DaysOfNonOperation: txc.BankHolidayDays{Holidays: []string{"StAndrewsDay"}},
	}

	rows = ExpandOperatingProfile(&txc.Document{}, nonOperating,
		serviceWindow("2024-11-01", "2024-12-31"), testCalendar())
	assert.Empty(t, rows.NonOperatingDates)
}

func TestUnknownBankHolidayIsSkipped(t *testing.T) {
	profile := mondayToFridayProfile()
	profile.BankHolidayOperation = &txc.BankHolidayOperation{
		DaysOfOperation: txc.BankHolidayDays{Holidays: []string{"FeastOfMaximumOccupancy"}},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, profile,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	assert.Empty(t, rows.OperatingDates)
}

func TestOtherPublicHolidayInsideWindow(t *testing.T) {
	profile := mondayToFridayProfile()
	profile.BankHolidayOperation = &txc.BankHolidayOperation{
		DaysOfOperation: txc.BankHolidayDays{
			OtherPublicHolidays: []txc.OtherPublicHoliday{
				{Description: "Town carnival", Date: "2024-07-13"}, // a Saturday
				{Description: "Out of window", Date: "2025-07-13"},
			},
		},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, profile,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	require.Len(t, rows.OperatingDates, 1)
	assert.Equal(t, date("2024-07-13"), rows.OperatingDates[0])
}

func TestSpecialDaysRangesAreInclusive(t *testing.T) {
	profile := mondayToFridayProfile()
	profile.SpecialDaysOperation = &txc.SpecialDaysOperation{
		// 2024-06-01/02 is a weekend: both days would not otherwise operate
		DaysOfOperation: []txc.DateRange{{StartDate: "2024-06-01", EndDate: "2024-06-02"}},
		// 2024-06-03 is a Monday: it would otherwise operate
		DaysOfNonOperation: []txc.DateRange{{StartDate: "2024-06-03"}},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, profile,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	assert.Equal(t, []time.Time{date("2024-06-01"), date("2024-06-02")}, rows.OperatingDates)
	assert.Equal(t, []time.Time{date("2024-06-03")}, rows.NonOperatingDates)
}

func TestSpecialDaysSkipRedundantExceptions(t *testing.T) {
	profile := mondayToFridayProfile()
	profile.SpecialDaysOperation = &txc.SpecialDaysOperation{
		// A Monday already operates; a Sunday already does not
		DaysOfOperation:    []txc.DateRange{{StartDate: "2024-06-03"}},
		DaysOfNonOperation: []txc.DateRange{{StartDate: "2024-06-02"}},
	}

	rows := ExpandOperatingProfile(&txc.Document{}, profile,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	assert.Empty(t, rows.OperatingDates)
	assert.Empty(t, rows.NonOperatingDates)
}

func TestServicedOrganisationLinks(t *testing.T) {
	doc := &txc.Document{
		ServicedOrganisations: []*txc.ServicedOrganisation{
			{
				OrganisationCode: "SCH1",
				Name:             "Westshire Schools",
				WorkingDays: txc.DatePattern{
					DateRange: []txc.DateRange{
						{StartDate: "2024-09-02", EndDate: "2024-10-25"},
					},
				},
			},
			{OrganisationCode: "SCH2", Name: "Eastshire Schools"},
		},
	}

	profile := mondayToFridayProfile()
	profile.ServicedOrganisationDayType = &txc.ServicedOrganisationDayType{
		DaysOfOperation: []txc.ServicedOrganisationDays{
			{WorkingDays: []string{"SCH1"}, Holidays: []string{"SCH2"}},
		},
		DaysOfNonOperation: []txc.ServicedOrganisationDays{
			{WorkingDays: []string{"SCH2"}},
		},
	}

	rows := ExpandOperatingProfile(doc, profile,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	require.Len(t, rows.ServicedOrganisations, 3)

	assert.Equal(t, "SCH1", rows.ServicedOrganisations[0].OrganisationCode)
	assert.True(t, rows.ServicedOrganisations[0].OperatingOnWorkingDays)
	require.Len(t, rows.ServicedOrganisations[0].WorkingDays, 1)
	assert.Equal(t, date("2024-09-02"), rows.ServicedOrganisations[0].WorkingDays[0].Start)
	assert.Equal(t, date("2024-10-25"), rows.ServicedOrganisations[0].WorkingDays[0].End)

	// Holiday refs under DaysOfOperation carry the inverted flag
	assert.Equal(t, "SCH2", rows.ServicedOrganisations[1].OrganisationCode)
	assert.False(t, rows.ServicedOrganisations[1].OperatingOnWorkingDays)

	// DaysOfNonOperation inverts working-day refs
	assert.Equal(t, "SCH2", rows.ServicedOrganisations[2].OrganisationCode)
	assert.False(t, rows.ServicedOrganisations[2].OperatingOnWorkingDays)
}

func TestNilProfileYieldsNothing(t *testing.T) {
	rows := ExpandOperatingProfile(&txc.Document{}, nil,
		serviceWindow("2024-01-01", "2024-12-31"), testCalendar())

	assert.Empty(t, rows.DaysOfWeek)
	assert.Empty(t, rows.OperatingDates)
}
