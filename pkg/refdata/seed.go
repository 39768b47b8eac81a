package refdata

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/database"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm/clause"
)

// naptanCSVRow matches the column headers of the NaPTAN StopPoints CSV
// export.
type naptanCSVRow struct {
	AtcoCode      string  `csv:"ATCOCode"`
	NaptanCode    string  `csv:"NaptanCode"`
	CommonName    string  `csv:"CommonName"`
	Indicator     string  `csv:"Indicator"`
	Longitude     float64 `csv:"Longitude"`
	Latitude      float64 `csv:"Latitude"`
	AdminAreaCode string  `csv:"AdministrativeAreaCode"`
	LocalityCode  string  `csv:"NptgLocalityCode"`
	StopType      string  `csv:"StopType"`
	Status        string  `csv:"Status"`
}

const seedBatchSize = 2000

// SeedStops loads a NaPTAN CSV export into the naptan_stoppoint table,
// upserting on ATCO code.
func SeedStops(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var rows []naptanCSVRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return err
	}

	var batch []transmodel.NaptanStopPoint
	var imported int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		err := database.GlobalGorm.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "atco_code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"naptan_code", "common_name", "indicator", "longitude",
				"latitude", "admin_area_code", "locality_id", "stop_type",
			}),
		}).CreateInBatches(batch, seedBatchSize).Error
		if err != nil {
			return err
		}

		imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, row := range rows {
		if row.AtcoCode == "" || row.Status == "del" {
			continue
		}

		batch = append(batch, transmodel.NaptanStopPoint{
			AtcoCode:      row.AtcoCode,
			NaptanCode:    row.NaptanCode,
			CommonName:    row.CommonName,
			Indicator:     row.Indicator,
			Longitude:     row.Longitude,
			Latitude:      row.Latitude,
			AdminAreaCode: row.AdminAreaCode,
			LocalityID:    row.LocalityCode,
			StopType:      row.StopType,
		})

		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	log.Info().Int("stops", imported).Msg("Seeded NaPTAN stop points")
	return nil
}

// StopActivityNames is the fixed TXC activity vocabulary.
var StopActivityNames = []string{"none", "pickUp", "setDown", "pickUpAndSetDown", "pass"}

// SeedStopActivities inserts the fixed activity lookup rows, skipping any
// that already exist.
func SeedStopActivities() error {
	var activities []transmodel.StopActivity
	for _, name := range StopActivityNames {
		activities = append(activities, transmodel.StopActivity{Name: name})
	}

	return database.GlobalGorm.Clauses(clause.OnConflict{DoNothing: true}).Create(&activities).Error
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "refdata",
		Usage: "Manage the reference datasets the ETL resolves against",
		Subcommands: []*cli.Command{
			{
				Name:  "seed-stops",
				Usage: "import a NaPTAN StopPoints CSV export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					return SeedStops(c.String("file"))
				},
			},
			{
				Name:  "seed-activities",
				Usage: "insert the fixed stop-activity lookup table",
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}

					return SeedStopActivities()
				},
			},
		},
	}
}
