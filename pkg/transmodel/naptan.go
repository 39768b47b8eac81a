package transmodel

// NaPTAN reference data, seeded out of band and read-only inside the
// pipeline.

type NaptanStopPoint struct {
	ID uint `gorm:"primaryKey"`

	AtcoCode   string `gorm:"uniqueIndex"`
	NaptanCode string
	CommonName string
	Indicator  string
	StopType   string

	Longitude float64
	Latitude  float64

	AdminAreaCode string `gorm:"index"`
	LocalityID    string `gorm:"index"`
}

func (NaptanStopPoint) TableName() string { return "naptan_stoppoint" }

type NaptanAdminArea struct {
	ID uint `gorm:"primaryKey"`

	Name     string
	AtcoCode string `gorm:"uniqueIndex"`
}

func (NaptanAdminArea) TableName() string { return "naptan_adminarea" }

type NaptanLocality struct {
	GazetteerID string `gorm:"primaryKey"`

	Name string
}

func (NaptanLocality) TableName() string { return "naptan_locality" }
