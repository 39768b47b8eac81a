package validate

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/elastic_client"
	"github.com/timetabler/timetabler/pkg/metrics"
	"gorm.io/gorm"
)

// Persist writes a violation batch and mirrors each row into Elasticsearch
// for the data quality dashboards. Indexing is best effort; the database row
// is the record of truth.
func Persist[T any](db *gorm.DB, stage string, indexName string, violations []T) error {
	if len(violations) == 0 {
		return nil
	}

	if err := db.Create(&violations).Error; err != nil {
		return err
	}

	metrics.Violations.WithLabelValues(stage).Add(float64(len(violations)))

	for i := range violations {
		document, err := json.Marshal(violations[i])
		if err != nil {
			log.Error().Err(err).Str("stage", stage).Msg("Failed to serialise violation for indexing")
			continue
		}

		elastic_client.IndexRequest(indexName, bytes.NewReader(document))
	}

	return nil
}
