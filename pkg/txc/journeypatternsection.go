package txc

type JourneyPatternSection struct {
	ID string `xml:"id,attr"`

	JourneyPatternTimingLinks []JourneyPatternTimingLink `xml:"JourneyPatternTimingLink"`
}

func (jps *JourneyPatternSection) GetTimingLink(id string) *JourneyPatternTimingLink {
	for i := range jps.JourneyPatternTimingLinks {
		if jps.JourneyPatternTimingLinks[i].ID == id {
			return &jps.JourneyPatternTimingLinks[i]
		}
	}

	return nil
}

type JourneyPatternTimingLink struct {
	ID string `xml:"id,attr"`

	RouteLinkRef string
	RunTime      string

	From TimingLinkUsage
	To   TimingLinkUsage
}

// TimingLinkUsage is the From or To end of a timing link.
type TimingLinkUsage struct {
	ID             string `xml:"id,attr"`
	SequenceNumber string `xml:",attr"`

	WaitTime                  string
	Activity                  string
	DynamicDestinationDisplay string
	StopPointRef              string
	TimingStatus              string
	FareStageNumber           string
}

// IsTimingPoint reports whether the usage is a principal timing point.
// TXC uses PTP ("principal timing point") and its legacy alias T1.
func (u *TimingLinkUsage) IsTimingPoint() bool {
	return u.TimingStatus == "PTP" || u.TimingStatus == "principalTimingPoint" || u.TimingStatus == "T1"
}
