package txc

type Service struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	ServiceCode              string
	TicketMachineServiceCode string
	RegisteredOperatorRef    string
	PublicUse                bool
	Mode                     string

	StartDate string `xml:"OperatingPeriod>StartDate"`
	EndDate   string `xml:"OperatingPeriod>EndDate"`

	Lines []Line `xml:"Lines>Line"`

	StandardService *StandardService
	FlexibleService *FlexibleService

	OperatingProfile *OperatingProfile
}

type Line struct {
	ID       string `xml:"id,attr"`
	LineName string

	OutboundOrigin      string `xml:"OutboundDescription>Origin"`
	OutboundDestination string `xml:"OutboundDescription>Destination"`
	OutboundDescription string `xml:"OutboundDescription>Description"`

	InboundOrigin      string `xml:"InboundDescription>Origin"`
	InboundDestination string `xml:"InboundDescription>Destination"`
	InboundDescription string `xml:"InboundDescription>Description"`
}

type StandardService struct {
	Origin           string
	Destination      string
	UseAllStopPoints string

	JourneyPatterns []*JourneyPattern `xml:"JourneyPattern"`
}

type JourneyPattern struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	DestinationDisplay string
	OperatorRef        string
	Direction          string
	RouteRef           string

	JourneyPatternSectionRefs []string `xml:"JourneyPatternSectionRefs"`

	OperatingProfile *OperatingProfile
}

type FlexibleService struct {
	Origin      string
	Destination string

	FlexibleJourneyPatterns []*FlexibleJourneyPattern `xml:"FlexibleJourneyPattern"`

	BookingArrangements *BookingArrangements
}

type FlexibleJourneyPattern struct {
	ID        string `xml:"id,attr"`
	Direction string

	StopPointsInSequence []FlexibleStopUsage `xml:"StopPointsInSequence>FixedStopUsage"`
	FlexibleZones        []FlexibleStopUsage `xml:"StopPointsInSequence>FlexibleStopUsage"`

	BookingArrangements *BookingArrangements
}

type FlexibleStopUsage struct {
	StopPointRef string
	TimingStatus string

	FlexibleZone []Location `xml:"FlexibleZone>Location"`
}

type BookingArrangements struct {
	Description      string
	Phone            string `xml:"Phone>TelNationalNumber"`
	Email            string
	WebAddress       string
	AllBookingsTaken bool
}

// Line returns the line with the given id, or nil.
func (s *Service) Line(id string) *Line {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return &s.Lines[i]
		}
	}

	return nil
}

// JourneyPattern returns the standard-service journey pattern with the given
// id, or nil.
func (s *Service) JourneyPattern(id string) *JourneyPattern {
	if s.StandardService == nil {
		return nil
	}

	for _, pattern := range s.StandardService.JourneyPatterns {
		if pattern.ID == id {
			return pattern
		}
	}

	return nil
}
