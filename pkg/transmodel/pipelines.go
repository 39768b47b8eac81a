package transmodel

import "time"

// Dataset / revision bookkeeping plus the per-file task record the workflow
// engine observes.

type RevisionStatus string

const (
	RevisionStatusIndexing RevisionStatus = "indexing"
	RevisionStatusLive     RevisionStatus = "live"
	RevisionStatusError    RevisionStatus = "error"
)

type Dataset struct {
	ID uint `gorm:"primaryKey"`

	OrganisationID uint
	LiveRevisionID *uint
}

func (Dataset) TableName() string { return "organisation_dataset" }

type DatasetRevision struct {
	ID uint `gorm:"primaryKey"`

	DatasetID   uint `gorm:"index"`
	Status      RevisionStatus
	IsPublished bool
}

func (DatasetRevision) TableName() string { return "organisation_datasetrevision" }

type TXCFileAttributes struct {
	ID uint `gorm:"primaryKey"`

	RevisionID int `gorm:"index"`

	FileName             string
	SchemaVersion        string
	RevisionNumber       int
	ModificationDateTime time.Time
	Hash                 string

	ServiceCode string `gorm:"index"`
	LineNames   StringList `gorm:"type:text"`

	Origin      string
	Destination string

	OperatingPeriodStartDate *time.Time `gorm:"type:date"`
	OperatingPeriodEndDate   *time.Time `gorm:"type:date"`
}

func (TXCFileAttributes) TableName() string { return "organisation_txcfileattributes" }

type TaskState string

const (
	TaskPending TaskState = "PENDING"
	TaskStarted TaskState = "STARTED"
	TaskSuccess TaskState = "SUCCESS"
	TaskFailure TaskState = "FAILURE"
)

// Pipeline error codes surfaced on the task record.
const (
	ErrorCodeNoDataFound          = "NO_DATA_FOUND"
	ErrorCodeNoValidFileToProcess = "NO_VALID_FILE_TO_PROCESS"
	ErrorCodeAVScanFailed         = "AV_SCAN_FAILED"
	ErrorCodeSchemaInvalid        = "SCHEMA_INVALID"
	ErrorCodePostSchemaInvalid    = "POST_SCHEMA_INVALID"
	ErrorCodePTIInvalid           = "PTI_INVALID"
	ErrorCodeSystemError          = "SYSTEM_ERROR"
)

type DatasetETLTaskResult struct {
	ID uint `gorm:"primaryKey"`

	RevisionID int `gorm:"index"`

	// TaskID is the workflow engine's idempotency key.
	TaskID string `gorm:"uniqueIndex"`

	Status   TaskState
	Progress int

	ErrorCode      string
	TaskNameFailed string
	AdditionalInfo string

	Created   time.Time `gorm:"autoCreateTime"`
	Modified  time.Time `gorm:"autoUpdateTime"`
	Completed *time.Time
}

func (DatasetETLTaskResult) TableName() string { return "pipelines_datasetetltaskresult" }

// Validation output rows

type SchemaViolation struct {
	ID uint `gorm:"primaryKey"`

	Filename string
	Line     int
	Details  string

	RevisionID int       `gorm:"index"`
	Created    time.Time `gorm:"autoCreateTime"`
}

func (SchemaViolation) TableName() string { return "data_quality_schemaviolation" }

type PostSchemaViolation struct {
	ID uint `gorm:"primaryKey"`

	Filename string
	Details  string

	RevisionID int       `gorm:"index"`
	Created    time.Time `gorm:"autoCreateTime"`
}

func (PostSchemaViolation) TableName() string { return "data_quality_postschemaviolation" }

type PTIObservation struct {
	ID uint `gorm:"primaryKey"`

	Filename  string
	Line      int
	Details   string
	Category  string
	Reference string

	RevisionID int       `gorm:"index"`
	Created    time.Time `gorm:"autoCreateTime"`
}

func (PTIObservation) TableName() string { return "data_quality_ptiobservation" }
