package etl

import (
	"errors"
	"fmt"

	"github.com/timetabler/timetabler/pkg/etl/load"
	"github.com/timetabler/timetabler/pkg/etl/transform"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"github.com/timetabler/timetabler/pkg/txc"
)

// PipelineError carries the taxonomy code the workflow engine reads off the
// task record. Retriable errors are retried inside the stage before becoming
// terminal.
type PipelineError struct {
	Code      string
	Retriable bool
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func terminal(code string, err error) *PipelineError {
	return &PipelineError{Code: code, Err: err}
}

func retriable(err error) *PipelineError {
	return &PipelineError{Code: transmodel.ErrorCodeSystemError, Retriable: true, Err: err}
}

// classify maps an arbitrary stage error onto the taxonomy. Anything already
// classified passes through; known input errors get their codes; everything
// else is a retriable resource failure that hardens into SYSTEM_ERROR when
// the retry budget runs out.
func classify(err error) *PipelineError {
	var pipelineError *PipelineError
	if errors.As(err, &pipelineError) {
		return pipelineError
	}

	switch {
	case errors.Is(err, txc.ErrMalformedXML),
		errors.Is(err, txc.ErrExternalEntity),
		errors.Is(err, txc.ErrSchemaVersionUnsupported):
		return terminal(transmodel.ErrorCodeSchemaInvalid, err)
	case errors.Is(err, transform.ErrNoValidPatterns):
		return terminal(transmodel.ErrorCodeNoValidFileToProcess, err)
	case errors.Is(err, transform.ErrUnresolvedJourneyReference):
		return terminal(transmodel.ErrorCodeSystemError, err)
	case errors.Is(err, load.ErrRetriable):
		return retriable(err)
	}

	return retriable(err)
}
