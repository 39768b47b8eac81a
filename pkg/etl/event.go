package etl

// StageEvent is the workflow engine's invocation payload. Field names are
// part of the wire contract with the engine and must not change.
type StageEvent struct {
	DatasetRevisionID      int    `json:"DatasetRevisionId"`
	DatasetETLTaskResultID int    `json:"DatasetEtlTaskResultId,omitempty"`
	Bucket                 string `json:"Bucket,omitempty"`
	ObjectKey              string `json:"ObjectKey,omitempty"`
	FileAttributesID       int    `json:"FileAttributesId,omitempty"`
	SupersededTimetable    bool   `json:"SupersededTimetable,omitempty"`
	SkipTrackInserts       bool   `json:"SkipTrackInserts,omitempty"`

	// TaskID is the engine's idempotency key for the whole run.
	TaskID string `json:"TaskId,omitempty"`
}
