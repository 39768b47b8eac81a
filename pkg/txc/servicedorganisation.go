package txc

type ServicedOrganisation struct {
	ServicedOrganisationClassification string
	NatureOfOrganisation               string
	PhaseOfEducation                   string

	OrganisationCode string
	Name             string
	Note             string

	WorkingDays DatePattern
	Holidays    DatePattern

	ParentServicedOrganisationRef string
}

type DatePattern struct {
	DateRange   []DateRange
	Description string
}

type DateRange struct {
	StartDate string
	EndDate   string
}
