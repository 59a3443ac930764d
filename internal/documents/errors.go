package documents

import (
	"errors"
	"fmt"
)

var (
	ErrNoFilesProvided = errors.New("no files provided")
	ErrExtraction      = errors.New("extraction failed")
	ErrUpload          = errors.New("upload failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateID     = errors.New("duplicate id")
)

// FileError reports the file that stopped an ingestion call. Kind is one of
// ErrExtraction, ErrUpload or ErrPersistence; errors.Is matches both Kind and
// the underlying cause.
type FileError struct {
	Index    int
	FileName string
	Kind     error
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v: %v", e.Index, e.FileName, e.Kind, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
