package uploadkit

import "errors"

var (
	// Configuration errors
	ErrStorageNotSupported = errors.New("storage backend not supported")
	ErrNilStorage          = errors.New("storage is nil")

	// Environment errors
	ErrUploadsDisabled  = errors.New("file uploads are disabled")
	ErrFetchUnsupported = errors.New("fetching remote files is not supported")

	// Data errors
	ErrNoFiles = errors.New("no files to upload")
)
