package ingestion

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument is the cause when a document has no bytes or yields no text.
var ErrEmptyDocument = errors.New("document is empty")

// ErrUnsupportedType is the cause when no TextSource handles a document's type.
var ErrUnsupportedType = errors.New("unsupported document type")

// ExtractionError reports a document that could not be turned into text
// (unreadable, corrupt, encrypted, empty or of an unsupported type).
type ExtractionError struct {
	FileName string
	Message  string
	Cause    error
}

func (e *ExtractionError) Error() string {
	prefix := "text extraction failed"
	if e.FileName != "" {
		prefix = fmt.Sprintf("text extraction failed for %s", e.FileName)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
