package etl

import (
	"strconv"
	"time"

	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"github.com/timetabler/timetabler/pkg/util"
)

// extractFileAttributes lifts the per-service metadata out of a parsed
// document: one row per service, preserving the document's own attribute
// values.
func extractFileAttributes(doc *txc.Document, revisionID int) []transmodel.TXCFileAttributes {
	revisionNumber, _ := strconv.Atoi(doc.RevisionNumber)

	modification := time.Time{}
	if parsed, err := time.Parse(time.RFC3339, doc.ModificationDateTime); err == nil {
		modification = parsed
	}

	var rows []transmodel.TXCFileAttributes

	for _, service := range doc.Services {
		row := transmodel.TXCFileAttributes{
			RevisionID:           revisionID,
			FileName:             doc.FileName,
			SchemaVersion:        doc.SchemaVersion,
			RevisionNumber:       revisionNumber,
			ModificationDateTime: modification,
			Hash:                 doc.FileHash,
			ServiceCode:          service.ServiceCode,
		}

		var lineNames []string
		for _, line := range service.Lines {
			lineNames = append(lineNames, line.LineName)
		}
		row.LineNames = util.RemoveDuplicateStrings(lineNames, []string{})

		if service.StandardService != nil {
			row.Origin = service.StandardService.Origin
			row.Destination = service.StandardService.Destination
		} else if service.FlexibleService != nil {
			row.Origin = service.FlexibleService.Origin
			row.Destination = service.FlexibleService.Destination
		}

		if start, err := time.Parse(bankholidays.YearMonthDayFormat, service.StartDate); err == nil {
			row.OperatingPeriodStartDate = &start
		}
		if end, err := time.Parse(bankholidays.YearMonthDayFormat, service.EndDate); err == nil {
			row.OperatingPeriodEndDate = &end
		}

		rows = append(rows, row)
	}

	return rows
}
