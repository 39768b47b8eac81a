package txc

import "errors"

var (
	// ErrMalformedXML wraps any decode failure of the underlying byte stream.
	ErrMalformedXML = errors.New("malformed XML")

	// ErrSchemaVersionUnsupported marks documents declaring a TransXChange
	// release the pipeline does not handle.
	ErrSchemaVersionUnsupported = errors.New("unsupported schema version")

	// ErrExternalEntity marks documents that attempt DTD or external entity
	// loading, which the parser refuses outright.
	ErrExternalEntity = errors.New("document requests DTD or external entity loading")
)
