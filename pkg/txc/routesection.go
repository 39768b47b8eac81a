package txc

type Route struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	PrivateCode      string
	Description      string
	RouteSectionRefs []string `xml:"RouteSectionRef"`
}

type RouteSection struct {
	ID string `xml:"id,attr"`

	RouteLinks []RouteLink `xml:"RouteLink"`
}

func (r *RouteSection) GetRouteLink(id string) *RouteLink {
	for i := range r.RouteLinks {
		if r.RouteLinks[i].ID == id {
			return &r.RouteLinks[i]
		}
	}

	return nil
}

type RouteLink struct {
	ID                   string `xml:"id,attr"`
	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	FromStop string `xml:"From>StopPointRef"`
	ToStop   string `xml:"To>StopPointRef"`

	// Distance in metres, when the producer supplies one
	Distance float64

	Track []Location `xml:"Track>Mapping>Location"`
}
