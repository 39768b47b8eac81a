package txc

import (
	"encoding/xml"
	"time"
)

// OperatingProfile describes which calendar dates a vehicle journey runs on.
// It may appear on a service, a journey pattern, or a vehicle journey; the
// most specific one wins (see ResolveOperatingProfile).
type OperatingProfile struct {
	RegularDayType              RegularDayType
	PeriodicDayType             *ElementNameList
	SpecialDaysOperation        *SpecialDaysOperation
	BankHolidayOperation        *BankHolidayOperation
	ServicedOrganisationDayType *ServicedOrganisationDayType
}

type RegularDayType struct {
	DaysOfWeek   ElementNameList
	HolidaysOnly *struct{}
}

type SpecialDaysOperation struct {
	DaysOfOperation    []DateRange `xml:"DaysOfOperation>DateRange"`
	DaysOfNonOperation []DateRange `xml:"DaysOfNonOperation>DateRange"`
}

type BankHolidayOperation struct {
	DaysOfOperation    BankHolidayDays
	DaysOfNonOperation BankHolidayDays
}

type ServicedOrganisationDayType struct {
	DaysOfOperation    []ServicedOrganisationDays `xml:"DaysOfOperation"`
	DaysOfNonOperation []ServicedOrganisationDays `xml:"DaysOfNonOperation"`
}

type ServicedOrganisationDays struct {
	WorkingDays []string `xml:"WorkingDays>ServicedOrganisationRef"`
	Holidays    []string `xml:"Holidays>ServicedOrganisationRef"`
}

// ElementNameList captures TXC's "day names as empty elements" idiom
// (<Monday/><Tuesday/>... or <MondayToFriday/>).
type ElementNameList []string

func (l *ElementNameList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			*l = append(*l, ty.Name.Local)
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if ty.Name == start.Name {
				return nil
			}
		}
	}
}

// BankHolidayDays lists the enabled holidays of a DaysOfOperation or
// DaysOfNonOperation element. OtherPublicHoliday entries carry their own
// date and are kept separately.
type BankHolidayDays struct {
	Holidays            []string
	OtherPublicHolidays []OtherPublicHoliday
}

type OtherPublicHoliday struct {
	Description string
	Date        string
}

func (b *BankHolidayDays) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch ty := tok.(type) {
		case xml.StartElement:
			if ty.Name.Local == "OtherPublicHoliday" {
				var other OtherPublicHoliday
				if err := d.DecodeElement(&other, &ty); err != nil {
					return err
				}
				b.OtherPublicHolidays = append(b.OtherPublicHolidays, other)
			} else {
				b.Holidays = append(b.Holidays, ty.Name.Local)
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if ty.Name == start.Name {
				return nil
			}
		}
	}
}

var dayNameExpansion = map[string][]time.Weekday{
	"Monday":    {time.Monday},
	"Tuesday":   {time.Tuesday},
	"Wednesday": {time.Wednesday},
	"Thursday":  {time.Thursday},
	"Friday":    {time.Friday},
	"Saturday":  {time.Saturday},
	"Sunday":    {time.Sunday},
	"MondayToFriday": {
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	},
	"MondayToSaturday": {
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
	},
	"MondayToSunday": {
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
	},
	"Weekend": {time.Saturday, time.Sunday},
}

// Weekdays expands the day-name elements into a deduplicated weekday set.
// HolidaysOnly profiles yield an empty set.
func (r *RegularDayType) Weekdays() map[time.Weekday]bool {
	days := map[time.Weekday]bool{}

	if r.HolidaysOnly != nil {
		return days
	}

	for _, name := range r.DaysOfWeek {
		for _, day := range dayNameExpansion[name] {
			days[day] = true
		}
	}

	return days
}

// ResolveOperatingProfile picks the profile that applies to a vehicle
// journey: the journey's own profile wins, then the journey pattern's, then
// the enclosing service's. The input trees are never mutated.
func ResolveOperatingProfile(journey *VehicleJourney, pattern *JourneyPattern, service *Service) *OperatingProfile {
	if journey != nil && journey.OperatingProfile != nil {
		return journey.OperatingProfile
	}
	if pattern != nil && pattern.OperatingProfile != nil {
		return pattern.OperatingProfile
	}
	if service != nil && service.OperatingProfile != nil {
		return service.OperatingProfile
	}

	return nil
}
