// Package etl orchestrates the per-file pipeline: initialise → schema-check
// → file-attributes → post-schema-validation → pti-validation →
// transform-load → finalise, over the task state machine the workflow engine
// observes.
package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/bankholidays"
	"github.com/timetabler/timetabler/pkg/cache"
	"github.com/timetabler/timetabler/pkg/config"
	"github.com/timetabler/timetabler/pkg/database"
	"github.com/timetabler/timetabler/pkg/etl/load"
	"github.com/timetabler/timetabler/pkg/etl/transform"
	"github.com/timetabler/timetabler/pkg/etl/validate"
	"github.com/timetabler/timetabler/pkg/metrics"
	"github.com/timetabler/timetabler/pkg/objectstore"
	"github.com/timetabler/timetabler/pkg/refdata"
	"github.com/timetabler/timetabler/pkg/routing"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
	"gorm.io/gorm"
)

type Pipeline struct {
	DB       *gorm.DB
	Store    objectstore.Client
	Router   *routing.Client
	Calendar *bankholidays.Calendar
	Cache    *cache.RevisionCache
}

// Run processes one file end to end. Any panic in a stage is recovered into
// a SYSTEM_ERROR failure on the task; the workflow engine reads the outcome
// off the task record either way.
func (p *Pipeline) Run(ctx context.Context, event *StageEvent) (err error) {
	var tracker *taskTracker

	defer func() {
		if recovered := recover(); recovered != nil {
			pipelineError := terminal(transmodel.ErrorCodeSystemError,
				fmt.Errorf("panic: %v", recovered))

			log.Error().Interface("panic", recovered).Msg("Stage panicked")

			if tracker != nil {
				tracker.fail(ctx, "unknown", pipelineError)
			}

			err = pipelineError
		}
	}()

	// initialise

	if err := database.EnsureFreshCredentials(); err != nil {
		return err
	}

	var revision transmodel.DatasetRevision
	if err := p.DB.WithContext(ctx).First(&revision, event.DatasetRevisionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return terminal(transmodel.ErrorCodeNoDataFound,
				fmt.Errorf("revision %d does not exist", event.DatasetRevisionID))
		}

		return err
	}

	tracker, err = startTask(ctx, p.DB, event)
	if err != nil {
		return err
	}

	p.warmCache(ctx, event.DatasetRevisionID)

	// schema-check

	var doc *txc.Document
	err = p.runStage(ctx, tracker, "schema-check", func(ctx context.Context) error {
		data, err := p.Store.Get(ctx, event.Bucket, event.ObjectKey)
		if err != nil {
			return err
		}

		violations := validate.CheckSchema(data, event.ObjectKey, event.DatasetRevisionID)
		if err := validate.Persist(p.DB.WithContext(ctx), "schema", "timetabler-schema-violations", violations); err != nil {
			return err
		}
		if len(violations) > 0 {
			return terminal(transmodel.ErrorCodeSchemaInvalid,
				fmt.Errorf("%d schema violations in %s", len(violations), event.ObjectKey))
		}

		doc, err = txc.Parse(bytes.NewReader(data), txc.ParseEverything())
		if err != nil {
			return err
		}

		return doc.Validate()
	})
	if err != nil {
		return err
	}
	tracker.setProgress(ctx, 20)

	// file-attributes

	err = p.runStage(ctx, tracker, "file-attributes", func(ctx context.Context) error {
		rows := extractFileAttributes(doc, event.DatasetRevisionID)
		if len(rows) == 0 {
			return terminal(transmodel.ErrorCodeNoValidFileToProcess,
				fmt.Errorf("%s contains no services", event.ObjectKey))
		}

		if err := p.DB.WithContext(ctx).Create(&rows).Error; err != nil {
			return err
		}

		if event.FileAttributesID == 0 {
			event.FileAttributesID = int(rows[0].ID)
		}

		return nil
	})
	if err != nil {
		return err
	}
	tracker.setProgress(ctx, 40)

	// post-schema-validation

	err = p.runStage(ctx, tracker, "post-schema-validation", func(ctx context.Context) error {
		violations := validate.CheckFilenamePII(doc.FileName, event.DatasetRevisionID)

		if config.Config.Pipeline.CheckServiceCodeUniqueness {
			var serviceCodes []string
			for _, service := range doc.Services {
				serviceCodes = append(serviceCodes, service.ServiceCode)
			}

			var attributesCache validate.LiveAttributes
			if p.Cache != nil {
				attributesCache = p.Cache
			}

			uniqueness, err := validate.CheckServiceCodeUniqueness(
				ctx, p.DB, attributesCache, doc.FileName, serviceCodes, event.DatasetRevisionID)
			if err != nil {
				return err
			}

			violations = append(violations, uniqueness...)
		}

		if err := validate.Persist(p.DB.WithContext(ctx), "post-schema", "timetabler-postschema-violations", violations); err != nil {
			return err
		}
		if len(violations) > 0 {
			return terminal(transmodel.ErrorCodePostSchemaInvalid,
				fmt.Errorf("%d post-schema violations in %s", len(violations), event.ObjectKey))
		}

		return nil
	})
	if err != nil {
		return err
	}
	tracker.setProgress(ctx, 50)

	// pti-validation

	err = p.runStage(ctx, tracker, "pti-validation", func(ctx context.Context) error {
		observations := validate.CheckPTI(doc, doc.FileName, event.DatasetRevisionID)
		if err := validate.Persist(p.DB.WithContext(ctx), "pti", "timetabler-pti-observations", observations); err != nil {
			return err
		}
		if len(observations) > 0 {
			return terminal(transmodel.ErrorCodePTIInvalid,
				fmt.Errorf("%d PTI observations in %s", len(observations), event.ObjectKey))
		}

		return nil
	})
	if err != nil {
		return err
	}
	tracker.setProgress(ctx, 60)

	// transform-load

	err = p.runStage(ctx, tracker, "transform-load", func(ctx context.Context) error {
		if err := database.EnsureFreshCredentials(); err != nil {
			return err
		}

		fileAttributesID := event.FileAttributesID
		transformer := &transform.Transformer{
			Resolver:            refdata.NewResolver(p.DB),
			Router:              p.Router,
			Calendar:            p.Calendar,
			RevisionID:          event.DatasetRevisionID,
			FileAttributesID:    &fileAttributesID,
			SupersededTimetable: event.SupersededTimetable,
		}

		output, err := transformer.Transform(ctx, doc)
		if err != nil {
			return err
		}

		loader := &load.Loader{
			DB:               p.DB,
			SkipTrackInserts: event.SkipTrackInserts || config.Config.Pipeline.SkipTrackInserts,
		}

		return loader.Load(ctx, output)
	})
	if err != nil {
		return err
	}
	tracker.setProgress(ctx, 90)

	// finalise

	return tracker.succeed(ctx)
}

// warmCache stores the revision's live file-attributes ahead of the file
// workers. Best effort: a cold cache only costs a database query later.
func (p *Pipeline) warmCache(ctx context.Context, revisionID int) {
	if p.Cache == nil {
		return
	}

	var rows []transmodel.TXCFileAttributes
	if err := p.DB.WithContext(ctx).Where("revision_id = ?", revisionID).Find(&rows).Error; err != nil {
		log.Warn().Err(err).Int("revision", revisionID).Msg("Failed to load file attributes for cache warming")
		return
	}

	if err := p.Cache.WarmLiveFileAttributes(ctx, revisionID, rows); err != nil {
		log.Warn().Err(err).Int("revision", revisionID).Msg("Failed to warm live file attributes cache")
	}
}

// runStage executes one stage with the retry policy. A retriable error past
// the budget hardens into SYSTEM_ERROR; a terminal error fails the task
// immediately.
func (p *Pipeline) runStage(ctx context.Context, tracker *taskTracker, name string, stage func(context.Context) error) error {
	timer := prometheus.NewTimer(metrics.StageDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = config.Config.Pipeline.StageBackoffInitial

	retryPolicy := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(config.Config.Pipeline.StageRetries)), ctx)

	operation := func() error {
		err := stage(ctx)
		if err == nil {
			return nil
		}

		pipelineError := classify(err)
		if !pipelineError.Retriable {
			return backoff.Permanent(error(pipelineError))
		}

		return pipelineError
	}

	err := backoff.RetryNotify(operation, retryPolicy, func(err error, next time.Duration) {
		metrics.StageRetries.WithLabelValues(name).Inc()
		log.Warn().Err(err).Str("stage", name).Dur("retryIn", next).Msg("Stage failed, retrying")
	})
	if err == nil {
		return nil
	}

	pipelineError := classify(err)
	if pipelineError.Retriable {
		// Retry budget exhausted
		pipelineError = terminal(transmodel.ErrorCodeSystemError, pipelineError.Err)
	}

	tracker.fail(ctx, name, pipelineError)

	return pipelineError
}
