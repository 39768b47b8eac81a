package txc

type VehicleJourney struct {
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`
	SequenceNumber       string `xml:",attr"`

	PrivateCode        string
	OperatorRef        string
	Direction          string
	GarageRef          string
	VehicleJourneyCode string
	ServiceRef         string
	LineRef            string

	// Exactly one of JourneyPatternRef and VehicleJourneyRef is expected;
	// a journey referencing another journey inherits its pattern.
	JourneyPatternRef string
	VehicleJourneyRef string

	DepartureTime     string
	DepartureDayShift string

	Operational *Operational

	Frequency *Frequency

	VehicleJourneyTimingLinks []VehicleJourneyTimingLink `xml:"VehicleJourneyTimingLink"`

	OperatingProfile *OperatingProfile
}

type Operational struct {
	JourneyCode string `xml:"TicketMachine>JourneyCode"`
	BlockNumber string `xml:"Block>BlockNumber"`
}

type Frequency struct {
	EndTime  string
	Interval *FrequencyInterval
}

type FrequencyInterval struct {
	ScheduledFrequency string
}

func (v *VehicleJourney) GetVehicleJourneyTimingLinkByJourneyPatternTimingLinkRef(id string) *VehicleJourneyTimingLink {
	for i := range v.VehicleJourneyTimingLinks {
		if v.VehicleJourneyTimingLinks[i].JourneyPatternTimingLinkRef == id {
			return &v.VehicleJourneyTimingLinks[i]
		}
	}

	return nil
}

type VehicleJourneyTimingLink struct {
	ID string `xml:"id,attr"`

	JourneyPatternTimingLinkRef string
	RunTime                     string

	From TimingLinkUsage
	To   TimingLinkUsage
}
