package file

import "errors"

var (
	// Source errors
	ErrNoData       = errors.New("no files found in source")
	ErrKeyNotFound  = errors.New("upload key not found")
	ErrInvalidField = errors.New("invalid upload field") // Malformed transport record

	// File system errors
	ErrFileNotFound = errors.New("file not found")
	ErrNotAFile     = errors.New("path is not a regular file")

	// I/O operation errors - wrapped with context for debugging
	ErrFailedToOpenFile   = errors.New("failed to open file")
	ErrFailedToCreateFile = errors.New("failed to create file")
	ErrFailedToWriteFile  = errors.New("failed to write file")
	ErrFailedToParseForm  = errors.New("failed to parse multipart form")

	// Configuration errors
	ErrNilForm    = errors.New("multipart form is nil")
	ErrNilFetcher = errors.New("fetcher is nil")
)
