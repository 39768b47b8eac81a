// Package bankholidays holds the GB bank holiday calendar used when
// expanding operating profiles.
//
// The calendar is loaded once at startup and injected into the pipeline as
// immutable configuration. Moveable feasts come from the gov.uk feed; fixed
// days are overlaid so that documents referencing them expand even for years
// the feed does not cover.
package bankholidays

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

const YearMonthDayFormat = "2006-01-02"

const govUKBankHolidayURL = "https://www.gov.uk/bank-holidays.json"

// Calendar maps year -> TXC bank holiday element name -> date.
type Calendar struct {
	days map[int]map[string]time.Time
}

// NewCalendar builds a calendar from explicit data. Used by tests and by
// deployments that pin the holiday set.
func NewCalendar(days map[int]map[string]time.Time) *Calendar {
	overlayFixedDays(days)

	return &Calendar{days: days}
}

// Load fetches the gov.uk feed. Fetch failure yields a calendar containing
// only the fixed-date holidays; the error is logged, not fatal, because most
// documents only reference fixed days.
func Load() *Calendar {
	days := map[int]map[string]time.Time{}

	if err := loadGovUKFeed(days); err != nil {
		log.Error().Err(err).Msg("Failed to get Bank Holidays")

		currentYear := time.Now().Year()
		for year := currentYear - 1; year <= currentYear+2; year++ {
			days[year] = map[string]time.Time{}
		}
	}

	overlayFixedDays(days)

	return &Calendar{days: days}
}

// Dates returns every occurrence of the named holiday inside [from, to],
// inclusive at both ends. Group names (AllBankHolidays, HolidayMondays,
// Christmas) expand to their members. An unknown name returns nil; the caller
// decides whether that warrants a warning.
func (c *Calendar) Dates(name string, from time.Time, to time.Time) []time.Time {
	var dates []time.Time

	members, isGroup := holidayGroups[name]
	if !isGroup {
		members = []string{name}
	}

	for year := from.Year(); year <= to.Year(); year++ {
		yearMap := c.days[year]
		if yearMap == nil {
			continue
		}

		for _, member := range members {
			date, found := yearMap[member]
			if !found {
				continue
			}

			if !date.Before(from) && !date.After(to) {
				dates = append(dates, date)
			}
		}
	}

	return dates
}

// Known reports whether the calendar can expand the given element name at all.
func (c *Calendar) Known(name string) bool {
	if _, isGroup := holidayGroups[name]; isGroup {
		return true
	}

	for _, yearMap := range c.days {
		if _, found := yearMap[name]; found {
			return true
		}
	}

	return false
}

var holidayGroups = map[string][]string{
	"AllBankHolidays": {
		"NewYearsDay", "Jan2ndScotland", "GoodFriday", "EasterMonday",
		"MayDay", "SpringBank", "LateSummerBankHolidayNotScotland",
		"StAndrewsDay", "ChristmasDay", "BoxingDay",
	},
	"HolidayMondays": {
		"EasterMonday", "MayDay", "SpringBank", "LateSummerBankHolidayNotScotland",
	},
	"Christmas": {
		"ChristmasDay", "BoxingDay",
	},
	"AllHolidaysExceptChristmas": {
		"NewYearsDay", "Jan2ndScotland", "GoodFriday", "EasterMonday",
		"MayDay", "SpringBank", "LateSummerBankHolidayNotScotland", "StAndrewsDay",
	},
}

func loadGovUKFeed(days map[int]map[string]time.Time) error {
	nonAlphanumericRegex := regexp.MustCompile(`[^a-zA-Z0-9]+`)

	type bankHolidayEventsSchema struct {
		Title string
		Date  string
	}
	type bankHolidayCountrySchema struct {
		Division string
		Events   []bankHolidayEventsSchema
	}
	type bankHolidaySchema struct {
		EnglandAndWales bankHolidayCountrySchema `json:"england-and-wales"`
		Scotland        bankHolidayCountrySchema `json:"scotland"`
		NorthernIreland bankHolidayCountrySchema `json:"northern-ireland"`
	}

	resp, err := http.Get(govUKBankHolidayURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bank holiday feed returned %s", resp.Status)
	}

	var bankHolidaysRaw bankHolidaySchema
	err = json.NewDecoder(resp.Body).Decode(&bankHolidaysRaw)
	if err != nil {
		return err
	}

	aggregateEvents := append(bankHolidaysRaw.NorthernIreland.Events, bankHolidaysRaw.Scotland.Events...)
	aggregateEvents = append(aggregateEvents, bankHolidaysRaw.EnglandAndWales.Events...)

	titleMapping := map[string]string{
		"Christmas Day":          "ChristmasDayHoliday",
		"Boxing Day":             "BoxingDayHoliday",
		"New Year’s Day":         "NewYearsDayHoliday",
		"Good Friday":            "GoodFriday",
		"Easter Monday":          "EasterMonday",
		"Early May bank holiday": "MayDay",
		"Spring bank holiday":    "SpringBank",
		"Summer bank holiday":    "LateSummerBankHolidayNotScotland",
		"St Andrew's Day":        "StAndrewsDayHoliday",
		"St Andrew’s Day":        "StAndrewsDayHoliday",
		"2nd January":            "Jan2ndScotlandHoliday",
	}

	for _, event := range aggregateEvents {
		eventDate, err := time.Parse(YearMonthDayFormat, event.Date)
		if err != nil {
			continue
		}

		eventID := titleMapping[event.Title]

		if eventID == "" {
			basicTitle := nonAlphanumericRegex.ReplaceAllString(event.Title, "")
			eventID = fmt.Sprintf("Unknown%s", basicTitle)
		}

		if days[eventDate.Year()] == nil {
			days[eventDate.Year()] = make(map[string]time.Time)
		}

		days[eventDate.Year()][eventID] = eventDate
	}

	return nil
}

func overlayFixedDays(days map[int]map[string]time.Time) {
	for year, yearMap := range days {
		yearMap["ChristmasEve"] = time.Date(year, 12, 24, 0, 0, 0, 0, time.UTC)
		yearMap["NewYearsEve"] = time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

		yearMap["ChristmasDay"] = time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC)
		yearMap["BoxingDay"] = time.Date(year, 12, 26, 0, 0, 0, 0, time.UTC)
		yearMap["NewYearsDay"] = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		yearMap["Jan2ndScotland"] = time.Date(year, 1, 2, 0, 0, 0, 0, time.UTC)
		yearMap["StAndrewsDay"] = time.Date(year, 11, 30, 0, 0, 0, 0, time.UTC)
	}
}
