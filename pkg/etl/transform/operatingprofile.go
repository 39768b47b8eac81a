package transform

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/txc"
)

// weekdayOrder fixes the emission order of day-of-week rows.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// DatePeriod is an inclusive date range.
type DatePeriod struct {
	Start time.Time
	End   time.Time
}

// ServicedOrganisationLink ties a vehicle journey to a serviced organisation
// calendar, with the organisation's working-day ranges alongside.
type ServicedOrganisationLink struct {
	OrganisationCode       string
	OrganisationName       string
	OperatingOnWorkingDays bool
	WorkingDays            []DatePeriod
}

// ProfileRows is the fully expanded form of one operating profile: the
// regular day-of-week rows plus the concrete date exceptions overlaying them.
type ProfileRows struct {
	DaysOfWeek            []string
	OperatingDates        []time.Time
	NonOperatingDates     []time.Time
	ServicedOrganisations []ServicedOrganisationLink
}

// ExpandOperatingProfile turns an operating profile into day-of-week rows and
// date exceptions over the service's operating period. Exceptions are only
// emitted where they change the outcome of the regular day mask: an operating
// exception for a date that already operates is noise, so it is skipped, and
// likewise for non-operating exceptions.
func ExpandOperatingProfile(
	doc *txc.Document,
	profile *txc.OperatingProfile,
	service *txc.Service,
	calendar *bankholidays.Calendar,
) *ProfileRows {
	rows := &ProfileRows{}

	if profile == nil {
		return rows
	}

	mask := profile.RegularDayType.Weekdays()
	for _, day := range weekdayOrder {
		if mask[day] {
			rows.DaysOfWeek = append(rows.DaysOfWeek, weekdayNames[day])
		}
	}

	window := operatingWindow(service)

	if profile.SpecialDaysOperation != nil {
		for _, dateRange := range profile.SpecialDaysOperation.DaysOfOperation {
			forEachDate(dateRange, func(date time.Time) {
				if !mask[date.Weekday()] {
					rows.OperatingDates = append(rows.OperatingDates, date)
				}
			})
		}

		for _, dateRange := range profile.SpecialDaysOperation.DaysOfNonOperation {
			forEachDate(dateRange, func(date time.Time) {
				if mask[date.Weekday()] {
					rows.NonOperatingDates = append(rows.NonOperatingDates, date)
				}
			})
		}
	}

	if profile.BankHolidayOperation != nil {
		for _, date := range holidayDates(&profile.BankHolidayOperation.DaysOfOperation, calendar, window) {
			if !mask[date.Weekday()] {
				rows.OperatingDates = append(rows.OperatingDates, date)
			}
		}

		for _, date := range holidayDates(&profile.BankHolidayOperation.DaysOfNonOperation, calendar, window) {
			if mask[date.Weekday()] {
				rows.NonOperatingDates = append(rows.NonOperatingDates, date)
			}
		}
	}

	if profile.ServicedOrganisationDayType != nil {
		for _, element := range profile.ServicedOrganisationDayType.DaysOfOperation {
			rows.appendOrganisationLinks(doc, element, false)
		}
		for _, element := range profile.ServicedOrganisationDayType.DaysOfNonOperation {
			rows.appendOrganisationLinks(doc, element, true)
		}
	}

	return rows
}

// operatingWindow bounds holiday expansion. An open-ended operating period is
// capped a year out so group names like AllBankHolidays stay finite.
func operatingWindow(service *txc.Service) DatePeriod {
	start, err := time.Parse(bankholidays.YearMonthDayFormat, service.StartDate)
	if err != nil {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}

	end, err := time.Parse(bankholidays.YearMonthDayFormat, service.EndDate)
	if err != nil {
		end = start.AddDate(1, 0, 0)
	}

	return DatePeriod{Start: start, End: end}
}

// parsePeriod reads an inclusive range, treating a missing end date as a
// single-day range.
func parsePeriod(dateRange txc.DateRange) (DatePeriod, bool) {
	start, err := time.Parse(bankholidays.YearMonthDayFormat, dateRange.StartDate)
	if err != nil {
		log.Warn().Str("startDate", dateRange.StartDate).Msg("Unparseable date range")
		return DatePeriod{}, false
	}

	end := start
	if dateRange.EndDate != "" {
		end, err = time.Parse(bankholidays.YearMonthDayFormat, dateRange.EndDate)
		if err != nil {
			log.Warn().Str("endDate", dateRange.EndDate).Msg("Unparseable date range")
			return DatePeriod{}, false
		}
	}

	return DatePeriod{Start: start, End: end}, true
}

func forEachDate(dateRange txc.DateRange, visit func(time.Time)) {
	period, ok := parsePeriod(dateRange)
	if !ok {
		return
	}

	for date := period.Start; !date.After(period.End); date = date.AddDate(0, 0, 1) {
		visit(date)
	}
}

func holidayDates(days *txc.BankHolidayDays, calendar *bankholidays.Calendar, window DatePeriod) []time.Time {
	var dates []time.Time

	for _, name := range days.Holidays {
		if !calendar.Known(name) {
			log.Warn().Str("holiday", name).Msg("Unknown bank holiday name, skipping")
			continue
		}

		dates = append(dates, calendar.Dates(name, window.Start, window.End)...)
	}

	for _, other := range days.OtherPublicHolidays {
		date, err := time.Parse(bankholidays.YearMonthDayFormat, other.Date)
		if err != nil {
			log.Warn().
				Str("holiday", other.Description).
				Str("date", other.Date).
				Msg("Unparseable OtherPublicHoliday date, skipping")
			continue
		}

		if !date.Before(window.Start) && !date.After(window.End) {
			dates = append(dates, date)
		}
	}

	return dates
}

// appendOrganisationLinks emits one link per referenced organisation. A
// DaysOfOperation element means working-day refs operate and holiday refs do
// not; a DaysOfNonOperation element inverts both flags.
func (rows *ProfileRows) appendOrganisationLinks(doc *txc.Document, element txc.ServicedOrganisationDays, inverted bool) {
	appendRef := func(code string, operatingOnWorkingDays bool) {
		organisation := doc.ServicedOrganisation(code)
		if organisation == nil {
			log.Warn().Str("organisation", code).Msg("Unknown serviced organisation reference, skipping")
			return
		}

		link := ServicedOrganisationLink{
			OrganisationCode:       code,
			OrganisationName:       organisation.Name,
			OperatingOnWorkingDays: operatingOnWorkingDays,
		}

		for _, dateRange := range organisation.WorkingDays.DateRange {
			period, ok := parsePeriod(dateRange)
			if !ok {
				continue
			}

			link.WorkingDays = append(link.WorkingDays, period)
		}

		rows.ServicedOrganisations = append(rows.ServicedOrganisations, link)
	}

	for _, code := range element.WorkingDays {
		appendRef(code, !inverted)
	}
	for _, code := range element.Holidays {
		appendRef(code, inverted)
	}
}
