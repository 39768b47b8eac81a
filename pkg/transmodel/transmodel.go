// Package transmodel defines the normalised relational model the ETL
// produces. All entities belonging to a revision are written in one
// transaction per file; Track rows are shared across revisions.
package transmodel

import "time"

type ServiceType string

const (
	ServiceTypeStandard ServiceType = "standard"
	ServiceTypeFlexible ServiceType = "flexible"
)

type Service struct {
	ID uint `gorm:"primaryKey"`

	ServiceCode string `gorm:"index"`
	// Name is the first line name; any further lines land in OtherNames.
	Name       string
	OtherNames StringList `gorm:"type:text"`

	StartDate time.Time `gorm:"type:date"`
	EndDate   *time.Time `gorm:"type:date"`

	ServiceType ServiceType

	RevisionID          int `gorm:"index"`
	TXCFileAttributesID *int
}

func (Service) TableName() string { return "transmodel_service" }

type ServicePattern struct {
	ID uint `gorm:"primaryKey"`

	// ServicePatternID is the deterministic canonical id, eg.
	// SP-UZ000FLIX:UK045-000123.
	ServicePatternID string `gorm:"index"`

	Origin      string
	Destination string
	Description string
	LineName    string

	Geom *LineString

	RevisionID int `gorm:"index"`
}

func (ServicePattern) TableName() string { return "transmodel_servicepattern" }

type ServicePatternStop struct {
	ID uint `gorm:"primaryKey"`

	SequenceNumber int
	// AutoSequenceNumber is the positional sequence, kept when the document
	// supplies an explicit SequenceNumber that overrides it.
	AutoSequenceNumber *int

	AtcoCode       string
	NaptanStopID   *uint
	TxcCommonName  string
	IsTimingPoint  bool
	DepartureTime  string // HH:MM:SS, civil time; day shifts live on the journey

	ServicePatternID uint `gorm:"index"`
	VehicleJourneyID *uint `gorm:"index"`
	StopActivityID   *uint
}

func (ServicePatternStop) TableName() string { return "transmodel_servicepatternstop" }

type VehicleJourney struct {
	ID uint `gorm:"primaryKey"`

	StartTime         string // HH:MM:SS
	Direction         string
	JourneyCode       string
	LineRef           string
	DepartureDayShift bool
	BlockNumber       *string

	ServicePatternID *uint `gorm:"index"`
}

func (VehicleJourney) TableName() string { return "transmodel_vehiclejourney" }

type OperatingProfile struct {
	ID uint `gorm:"primaryKey"`

	DayOfWeek string // monday..sunday

	VehicleJourneyID uint `gorm:"index"`
}

func (OperatingProfile) TableName() string { return "transmodel_operatingprofile" }

type OperatingDatesExceptions struct {
	ID uint `gorm:"primaryKey"`

	OperatingDate time.Time `gorm:"type:date"`

	VehicleJourneyID uint `gorm:"index"`
}

func (OperatingDatesExceptions) TableName() string { return "transmodel_operatingdatesexceptions" }

type NonOperatingDatesExceptions struct {
	ID uint `gorm:"primaryKey"`

	NonOperatingDate time.Time `gorm:"type:date"`

	VehicleJourneyID uint `gorm:"index"`
}

func (NonOperatingDatesExceptions) TableName() string {
	return "transmodel_nonoperatingdatesexceptions"
}

type ServicedOrganisation struct {
	ID uint `gorm:"primaryKey"`

	OrganisationCode string `gorm:"index"`
	Name             string
}

func (ServicedOrganisation) TableName() string { return "transmodel_servicedorganisations" }

type ServicedOrganisationVehicleJourney struct {
	ID uint `gorm:"primaryKey"`

	OperatingOnWorkingDays bool

	ServicedOrganisationID uint `gorm:"index"`
	VehicleJourneyID       uint `gorm:"index"`
}

func (ServicedOrganisationVehicleJourney) TableName() string {
	return "transmodel_servicedorganisationvehiclejourney"
}

type ServicedOrganisationWorkingDays struct {
	ID uint `gorm:"primaryKey"`

	StartDate time.Time `gorm:"type:date"`
	EndDate   time.Time `gorm:"type:date"`

	ServicedOrganisationVehicleJourneyID uint `gorm:"index"`
}

func (ServicedOrganisationWorkingDays) TableName() string {
	return "transmodel_servicedorganisationworkingdays"
}

type Track struct {
	ID uint `gorm:"primaryKey"`

	FromAtcoCode string `gorm:"uniqueIndex:idx_track_pair"`
	ToAtcoCode   string `gorm:"uniqueIndex:idx_track_pair"`

	Geometry *LineString
	// Distance in metres; null when no geometry source could provide one
	Distance *int
}

func (Track) TableName() string { return "transmodel_tracks" }

type ServicePatternTrack struct {
	ID uint `gorm:"primaryKey"`

	SequenceNumber int

	TrackID          uint `gorm:"index"`
	ServicePatternID uint `gorm:"index"`
}

func (ServicePatternTrack) TableName() string { return "transmodel_servicepatterntracks" }

type VehicleJourneyTrack struct {
	ID uint `gorm:"primaryKey"`

	SequenceNumber int

	TrackID          uint `gorm:"index"`
	VehicleJourneyID uint `gorm:"index"`
}

func (VehicleJourneyTrack) TableName() string { return "transmodel_tracksvehiclejourney" }

type BookingArrangement struct {
	ID uint `gorm:"primaryKey"`

	Description string
	Email       string
	PhoneNumber string
	WebAddress  string

	ServiceID uint `gorm:"index"`
}

func (BookingArrangement) TableName() string { return "transmodel_bookingarrangements" }

type StopActivity struct {
	ID uint `gorm:"primaryKey"`

	Name string `gorm:"uniqueIndex"`
}

func (StopActivity) TableName() string { return "transmodel_stopactivity" }

// Association tables

type ServicePatternAdminArea struct {
	ID uint `gorm:"primaryKey"`

	AdminAreaCode    string
	ServicePatternID uint `gorm:"index"`
}

func (ServicePatternAdminArea) TableName() string { return "transmodel_servicepattern_admin_areas" }

type ServicePatternLocality struct {
	ID uint `gorm:"primaryKey"`

	LocalityID       string
	ServicePatternID uint `gorm:"index"`
}

func (ServicePatternLocality) TableName() string { return "transmodel_servicepattern_localities" }

type ServiceServicePattern struct {
	ID uint `gorm:"primaryKey"`

	ServiceID        uint `gorm:"index"`
	ServicePatternID uint `gorm:"index"`
}

func (ServiceServicePattern) TableName() string { return "transmodel_service_service_patterns" }
