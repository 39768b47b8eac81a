package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/util"
	"gorm.io/gorm"
)

// LiveAttributes serves the warmed live file-attributes rows per revision.
// The orchestrator fills entries ahead of the workers; readers fall back to
// the database on a miss and never re-warm.
type LiveAttributes interface {
	LiveFileAttributes(ctx context.Context, revisionID int) ([]transmodel.TXCFileAttributes, bool)
}

// CheckFilenamePII flags a declared FileName that carries path separators,
// which would leak the producer's directory layout. Either separator yields
// exactly one violation.
func CheckFilenamePII(filename string, revisionID int) []transmodel.PostSchemaViolation {
	if !strings.ContainsAny(filename, `/\`) {
		return nil
	}

	return []transmodel.PostSchemaViolation{{
		Filename:   filename,
		Details:    "PII ERROR",
		RevisionID: revisionID,
	}}
}

// CheckServiceCodeUniqueness walks the live file-attributes of every other
// published revision and flags any of the document's service codes that are
// already claimed by another dataset. Per-revision rows come from the warmed
// cache where available, the database otherwise.
func CheckServiceCodeUniqueness(
	ctx context.Context,
	db *gorm.DB,
	attributesCache LiveAttributes,
	filename string,
	serviceCodes []string,
	revisionID int,
) ([]transmodel.PostSchemaViolation, error) {
	serviceCodes = util.RemoveDuplicateStrings(serviceCodes, []string{})
	if len(serviceCodes) == 0 {
		return nil, nil
	}

	wanted := map[string]bool{}
	for _, code := range serviceCodes {
		wanted[code] = true
	}

	var revisions []transmodel.DatasetRevision
	err := db.WithContext(ctx).
		Where("is_published = ?", true).
		Where("id <> ?", revisionID).
		Find(&revisions).Error
	if err != nil {
		return nil, err
	}

	conflictsByDataset := map[uint][]string{}
	for _, revision := range revisions {
		rows, err := liveFileAttributes(ctx, db, attributesCache, int(revision.ID))
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			if wanted[row.ServiceCode] {
				conflictsByDataset[revision.DatasetID] = append(
					conflictsByDataset[revision.DatasetID], row.ServiceCode)
			}
		}
	}

	var datasetIDs []uint
	for id := range conflictsByDataset {
		datasetIDs = append(datasetIDs, id)
	}
	sort.Slice(datasetIDs, func(i, j int) bool { return datasetIDs[i] < datasetIDs[j] })

	var violations []transmodel.PostSchemaViolation
	for _, datasetID := range datasetIDs {
		codes := util.RemoveDuplicateStrings(conflictsByDataset[datasetID], []string{})

		violations = append(violations, transmodel.PostSchemaViolation{
			Filename: filename,
			Details: fmt.Sprintf("service codes %s already exist in published dataset %d",
				strings.Join(codes, ", "), datasetID),
			RevisionID: revisionID,
		})
	}

	return violations, nil
}

// liveFileAttributes reads one revision's rows, cache first.
func liveFileAttributes(ctx context.Context, db *gorm.DB, attributesCache LiveAttributes, revisionID int) ([]transmodel.TXCFileAttributes, error) {
	if attributesCache != nil {
		if rows, found := attributesCache.LiveFileAttributes(ctx, revisionID); found {
			return rows, nil
		}
	}

	var rows []transmodel.TXCFileAttributes
	err := db.WithContext(ctx).Where("revision_id = ?", revisionID).Find(&rows).Error

	return rows, err
}
