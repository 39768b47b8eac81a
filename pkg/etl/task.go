package etl

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/metrics"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// taskTracker owns the per-file state machine: pending → started →
// success | failure. The task id is the idempotency key, so re-delivered
// events reuse the existing row.
type taskTracker struct {
	db   *gorm.DB
	task *transmodel.DatasetETLTaskResult
}

func startTask(ctx context.Context, db *gorm.DB, event *StageEvent) (*taskTracker, error) {
	task := transmodel.DatasetETLTaskResult{
		RevisionID: event.DatasetRevisionID,
		TaskID:     event.TaskID,
		Status:     transmodel.TaskPending,
	}

	if event.DatasetETLTaskResultID != 0 {
		err := db.WithContext(ctx).First(&task, event.DatasetETLTaskResultID).Error
		if err != nil {
			return nil, err
		}
	} else {
		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "task_id"}},
				DoNothing: true,
			}).
			Create(&task).Error
		if err != nil {
			return nil, err
		}

		if task.ID == 0 {
			err = db.WithContext(ctx).Where("task_id = ?", event.TaskID).First(&task).Error
			if err != nil {
				return nil, err
			}
		}
	}

	tracker := &taskTracker{db: db, task: &task}

	return tracker, tracker.update(ctx, map[string]any{
		"status":   transmodel.TaskStarted,
		"progress": 0,
	})
}

func (t *taskTracker) setProgress(ctx context.Context, progress int) {
	if err := t.update(ctx, map[string]any{"progress": progress}); err != nil {
		log.Warn().Err(err).Uint("task", t.task.ID).Msg("Failed to update task progress")
	}
}

func (t *taskTracker) succeed(ctx context.Context) error {
	now := time.Now()

	metrics.FilesProcessed.WithLabelValues(string(transmodel.TaskSuccess)).Inc()

	return t.update(ctx, map[string]any{
		"status":    transmodel.TaskSuccess,
		"progress":  100,
		"completed": &now,
	})
}

// fail marks the task failed with the taxonomy code and flips the owning
// revision to error so the publish flow stops.
func (t *taskTracker) fail(ctx context.Context, stageName string, pipelineError *PipelineError) {
	now := time.Now()

	metrics.FilesProcessed.WithLabelValues(string(transmodel.TaskFailure)).Inc()

	err := t.update(ctx, map[string]any{
		"status":           transmodel.TaskFailure,
		"error_code":       pipelineError.Code,
		"task_name_failed": stageName,
		"additional_info":  util.FirstLine(pipelineError.Err.Error()),
		"completed":        &now,
	})
	if err != nil {
		log.Error().Err(err).Uint("task", t.task.ID).Msg("Failed to mark task failed")
	}

	err = t.db.WithContext(ctx).
		Model(&transmodel.DatasetRevision{}).
		Where("id = ?", t.task.RevisionID).
		Update("status", transmodel.RevisionStatusError).Error
	if err != nil {
		log.Error().Err(err).Int("revision", t.task.RevisionID).Msg("Failed to mark revision errored")
	}
}

func (t *taskTracker) update(ctx context.Context, fields map[string]any) error {
	return t.db.WithContext(ctx).
		Model(t.task).
		Updates(fields).Error
}
