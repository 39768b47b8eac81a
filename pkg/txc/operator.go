package txc

type Operator struct {
	ID string `xml:"id,attr"`

	CreationDateTime     string `xml:",attr"`
	ModificationDateTime string `xml:",attr"`

	NationalOperatorCode  string
	OperatorCode          string
	OperatorShortName     string
	OperatorNameOnLicence string
	TradingName           string
	LicenceNumber         string
}

// AnnotatedStopPointRef is the lightweight stop declaration TXC documents
// carry alongside the NaPTAN reference.
type AnnotatedStopPointRef struct {
	StopPointRef string
	CommonName   string
	Indicator    string
	LocalityName string

	Location *Location
}
